package repositories

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Register_And_Resolve_User(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository, err := NewUserRepository(db)
	req.NoError(err)
	defer repository.Close()

	// Given a registered user
	alice, err := repository.RegisterUser("alice", "correct horse battery staple")
	req.NoError(err)
	req.Equal("alice", alice.Username)
	req.Positive(alice.ID)

	// Then it resolves by id
	found, err := repository.UserByID(alice.ID)
	req.NoError(err)
	req.Equal(alice, found)

	exists, err := repository.UserExistsByID(alice.ID)
	req.NoError(err)
	req.True(exists)

	exists, err = repository.UserExistsByID(alice.ID + 100)
	req.NoError(err)
	req.False(exists)
}

func Test_Duplicate_Username_Rejected(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository, err := NewUserRepository(db)
	req.NoError(err)
	defer repository.Close()

	_, err = repository.RegisterUser("alice", "first")
	req.NoError(err)

	_, err = repository.RegisterUser("alice", "second")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Authenticate(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository, err := NewUserRepository(db)
	req.NoError(err)
	defer repository.Close()

	alice, err := repository.RegisterUser("alice", "correct horse battery staple")
	req.NoError(err)

	// Right password
	authenticated, err := repository.Authenticate("alice", "correct horse battery staple")
	req.NoError(err)
	req.Equal(alice, authenticated)

	// Wrong password
	_, err = repository.Authenticate("alice", "wrong")
	req.ErrorIs(err, errors.ErrInvalidCredentials)

	// Unknown username
	_, err = repository.Authenticate("mallory", "whatever")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func Test_Unknown_User_Lookup(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository, err := NewUserRepository(db)
	req.NoError(err)
	defer repository.Close()

	_, err = repository.UserByID(42)
	req.ErrorIs(err, errors.ErrUserNotFound)
}
