package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func testMessage(chatID int, sender string, content string, at time.Time) domain.Message {
	return domain.Message{
		SenderID:       1,
		ChatID:         domain.ChatID(chatID),
		Content:        content,
		Timestamp:      at,
		SenderUsername: sender,
	}
}

func Test_Record_Multiple_Messages(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository, err := NewMessageRepository(db, nil, slog.Default(), nil)
	req.NoError(err)
	defer repository.Close()

	chatID := 1
	at := time.Date(2024, 5, 17, 9, 30, 0, 123456789, time.Local)
	messages := []domain.Message{
		testMessage(chatID, "alice", "first", at),
		testMessage(chatID, "bob", "second", at.Add(1*time.Minute)),
		testMessage(chatID, "clara", "third", at.Add(2*time.Minute)),
	}
	var stored []domain.Message
	for _, message := range messages {
		s, err := repository.StoreMessage(message)
		req.NoError(err)
		req.Positive(s.ID)
		stored = append(stored, s)
	}

	fetched, err := repository.MessagesOf(domain.ChatID(chatID))
	req.NoError(err)
	req.Equal(stored, fetched)
}

func Test_Record_Multiple_Messages_And_Limit(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	limit := 2
	repository, err := NewMessageRepository(db, nil, slog.Default(), &limit)
	req.NoError(err)
	defer repository.Close()

	chatID := 1
	at := time.Date(2024, 5, 17, 9, 30, 0, 0, time.Local)
	for i, content := range []string{"first", "second", "third"} {
		_, err := repository.StoreMessage(testMessage(chatID, "alice", content, at.Add(time.Duration(i)*time.Minute)))
		req.NoError(err)
	}

	fetched, err := repository.MessagesOf(domain.ChatID(chatID))
	req.NoError(err)
	req.Len(fetched, limit)
}

func Test_Messages_Scoped_To_Chat(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository, err := NewMessageRepository(db, nil, slog.Default(), nil)
	req.NoError(err)
	defer repository.Close()

	at := time.Date(2024, 5, 17, 9, 30, 0, 0, time.Local)
	_, err = repository.StoreMessage(testMessage(1, "alice", "in general", at))
	req.NoError(err)
	_, err = repository.StoreMessage(testMessage(2, "bob", "in random", at))
	req.NoError(err)

	fetched, err := repository.MessagesOf(domain.ChatID(1))
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("in general", fetched[0].Content)
}

func Test_Existing_Id_Is_Preserved(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository, err := NewMessageRepository(db, nil, slog.Default(), nil)
	req.NoError(err)
	defer repository.Close()

	message := testMessage(1, "alice", "hello", time.Date(2024, 5, 17, 9, 30, 0, 0, time.Local))
	message.ID = 42

	stored, err := repository.StoreMessage(message)
	req.NoError(err)
	req.Equal(42, stored.ID)
}

func Test_Zero_Timestamp_Keeps_Chronological_Order(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository, err := NewMessageRepository(db, nil, slog.Default(), nil)
	req.NoError(err)
	defer repository.Close()

	// Given a sender that never stamped its message
	_, err = repository.StoreMessage(testMessage(1, "alice", "unstamped", time.Time{}))
	req.NoError(err)
	_, err = repository.StoreMessage(testMessage(1, "bob", "stamped", time.Date(2024, 5, 17, 9, 30, 0, 0, time.Local)))
	req.NoError(err)

	// Then the pre-epoch timestamp sorts first instead of corrupting the
	// key order with a sign character
	fetched, err := repository.MessagesOf(domain.ChatID(1))
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal("unstamped", fetched[0].Content)
	req.Equal("stamped", fetched[1].Content)
}

func Test_Search_Indexed_Content(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	index, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	defer index.Close()

	repository, err := NewMessageRepository(db, index, slog.Default(), nil)
	req.NoError(err)
	defer repository.Close()

	at := time.Date(2024, 5, 17, 9, 30, 0, 0, time.Local)
	_, err = repository.StoreMessage(testMessage(1, "alice", "the deployment window opens friday", at))
	req.NoError(err)
	_, err = repository.StoreMessage(testMessage(1, "bob", "lunch at noon", at.Add(time.Minute)))
	req.NoError(err)

	hits, err := repository.Search("deployment", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("the deployment window opens friday", hits[0].Content)

	hits, err = repository.Search("weekend", 10)
	req.NoError(err)
	req.Empty(hits)
}

func Test_Search_Without_Index(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository, err := NewMessageRepository(db, nil, slog.Default(), nil)
	req.NoError(err)
	defer repository.Close()

	_, err = repository.Search("anything", 10)
	req.Error(err)
}
