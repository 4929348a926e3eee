package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/errors"
)

const (
	chatPrefix      = "chat:"
	chatSequenceKey = "seq:chat"
)

type chatRecord struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	ParticipantIDs []int     `json:"participantIds"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ChatRepository resolves chat membership. The broadcaster reads it on
// every message, so lookups stay single-key.
type ChatRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewChatRepository(db *badger.DB) (*ChatRepository, error) {
	seq, err := db.GetSequence([]byte(chatSequenceKey), 16)
	if err != nil {
		return nil, fmt.Errorf("chat id sequence: %w", err)
	}
	return &ChatRepository{db: db, seq: seq}, nil
}

// NewChatDirectory opens a read-only view: lookups work, CreateChat does
// not. Suited to a database opened WithReadOnly.
func NewChatDirectory(db *badger.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Close() error {
	if r.seq == nil {
		return nil
	}
	return r.seq.Release()
}

func (r *ChatRepository) CreateChat(name string, participantIDs []int) (domain.Chat, error) {
	if r.seq == nil {
		return domain.Chat{}, fmt.Errorf("chat repository opened read-only")
	}
	next, err := r.seq.Next()
	if err != nil {
		return domain.Chat{}, err
	}
	record := chatRecord{
		ID:             int(next) + 1,
		Name:           name,
		ParticipantIDs: participantIDs,
		CreatedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return domain.Chat{}, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chatKey(record.ID), data)
	})
	if err != nil {
		return domain.Chat{}, err
	}
	return domain.Chat{
		ID:             domain.ChatID(record.ID),
		Name:           record.Name,
		ParticipantIDs: record.ParticipantIDs,
	}, nil
}

func (r *ChatRepository) ChatByID(chatID domain.ChatID) (domain.Chat, error) {
	record, err := r.recordByID(chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	return domain.Chat{
		ID:             domain.ChatID(record.ID),
		Name:           record.Name,
		ParticipantIDs: record.ParticipantIDs,
	}, nil
}

// ParticipantsOf returns the ids allowed to receive messages of a chat.
func (r *ChatRepository) ParticipantsOf(chatID domain.ChatID) ([]int, error) {
	record, err := r.recordByID(chatID)
	if err != nil {
		return nil, err
	}
	return record.ParticipantIDs, nil
}

// ChatsOfUser lists the chats a user participates in, ordered by id.
func (r *ChatRepository) ChatsOfUser(userID int) ([]domain.Chat, error) {
	all, err := r.Chats()
	if err != nil {
		return nil, err
	}
	var chats []domain.Chat
	for _, chat := range all {
		if lo.Contains(chat.ParticipantIDs, userID) {
			chats = append(chats, chat)
		}
	}
	return chats, nil
}

// Chats lists every chat, ordered by id.
func (r *ChatRepository) Chats() ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chatPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var record chatRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			chats = append(chats, domain.Chat{
				ID:             domain.ChatID(record.ID),
				Name:           record.Name,
				ParticipantIDs: record.ParticipantIDs,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *ChatRepository) recordByID(chatID domain.ChatID) (chatRecord, error) {
	var record chatRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(int(chatID)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err == badger.ErrKeyNotFound {
		return chatRecord{}, fmt.Errorf("%w: id %d", errors.ErrUnknownChat, chatID)
	}
	if err != nil {
		return chatRecord{}, err
	}
	return record, nil
}

func chatKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%09d", chatPrefix, id))
}
