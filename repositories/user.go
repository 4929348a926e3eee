// Package repositories implements the external collaborators of the relay
// on BadgerDB: the user directory, the chat directory and the message
// store. Records are stored as JSON, the same envelope family the wire
// uses.
package repositories

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
)

const (
	userByIDPrefix   = "user:id:"
	userByNamePrefix = "user:name:"
	userSequenceKey  = "seq:user"
)

// userRecord is the at-rest shape of a user.
type userRecord struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserRepository is the identity collaborator: the handshake resolves user
// ids through it and the CLI client authenticates against it.
type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewUserRepository(db *badger.DB) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte(userSequenceKey), 16)
	if err != nil {
		return nil, fmt.Errorf("user id sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq}, nil
}

// NewUserDirectory opens a read-only view: lookups and Authenticate work,
// RegisterUser does not. Suited to a database opened WithReadOnly.
func NewUserDirectory(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Close releases the id sequence lease.
func (r *UserRepository) Close() error {
	if r.seq == nil {
		return nil
	}
	return r.seq.Release()
}

// RegisterUser hashes the password and persists the user under both its id
// and its username key. Usernames are unique.
func (r *UserRepository) RegisterUser(username, password string) (domain.User, error) {
	if r.seq == nil {
		return domain.User{}, fmt.Errorf("user repository opened read-only")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	next, err := r.seq.Next()
	if err != nil {
		return domain.User{}, err
	}
	// Sequences start at 0; id 0 stays reserved for the system sender.
	record := userRecord{
		ID:           int(next) + 1,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return domain.User{}, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		nameKey := []byte(userByNamePrefix + username)
		if _, err := txn.Get(nameKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(nameKey, []byte(strconv.Itoa(record.ID))); err != nil {
			return err
		}
		return txn.Set(userKey(record.ID), data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: record.ID, Username: record.Username}, nil
}

func (r *UserRepository) UserExistsByID(id int) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(id))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case err == badger.ErrKeyNotFound:
		return false, nil
	default:
		return false, err
	}
}

func (r *UserRepository) UserByID(id int) (domain.User, error) {
	record, err := r.recordByID(id)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: record.ID, Username: record.Username}, nil
}

// Authenticate verifies a username/password pair. Unknown usernames and
// wrong passwords are indistinguishable to the caller.
func (r *UserRepository) Authenticate(username, password string) (domain.User, error) {
	var id int
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userByNamePrefix + username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id, err = strconv.Atoi(string(val))
			return err
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}

	record, err := r.recordByID(id)
	if err != nil {
		return domain.User{}, err
	}
	match, err := auth.ComparePassword(password, record.PasswordHash)
	if err != nil {
		return domain.User{}, err
	}
	if !match {
		return domain.User{}, errors.ErrInvalidCredentials
	}
	return domain.User{ID: record.ID, Username: record.Username}, nil
}

func (r *UserRepository) recordByID(id int) (userRecord, error) {
	var record userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err == badger.ErrKeyNotFound {
		return userRecord{}, fmt.Errorf("%w: id %d", errors.ErrUserNotFound, id)
	}
	if err != nil {
		return userRecord{}, err
	}
	return record, nil
}

func userKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%09d", userByIDPrefix, id))
}
