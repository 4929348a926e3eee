package repositories

import (
	"github.com/dgraph-io/badger/v4"
)

const blacklistPrefix = "blacklist:"

// BlacklistRepository stores the words the moderation screen flags.
// Words are keys, not values, so listing is a pure prefix scan.
type BlacklistRepository struct {
	db *badger.DB
}

func NewBlacklistRepository(db *badger.DB) BlacklistRepository {
	return BlacklistRepository{db: db}
}

func (r BlacklistRepository) AddWords(words []string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		for _, word := range words {
			if err := txn.Set([]byte(blacklistPrefix+word), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r BlacklistRepository) Words() ([]string, error) {
	var words []string
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(blacklistPrefix)
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			words = append(words, string(it.Item().Key()[len(blacklistPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return words, nil
}
