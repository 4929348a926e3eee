package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/wire"
)

const messageSequenceKey = "seq:message"

var _ contract.IMessageStore = MessageRepository{}

type messageRecord struct {
	ID             int    `json:"id"`
	SenderID       int    `json:"senderId"`
	ChatID         int    `json:"chatId"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp"`
	SenderUsername string `json:"senderUsername"`
}

// MessageRepository journals sent messages in BadgerDB and mirrors the
// content into a full-text index. A nil index writer disables indexing
// and Search.
type MessageRepository struct {
	db            *badger.DB
	seq           *badger.Sequence
	index         *bluge.Writer
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger, limitMessages *int) (MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequenceKey), 64)
	if err != nil {
		return MessageRepository{}, fmt.Errorf("message id sequence: %w", err)
	}
	return MessageRepository{db: db, seq: seq, index: index, log: log, limitMessages: limitMessages}, nil
}

// NewMessageReader opens a read-only view: MessagesOf and Search work,
// StoreMessage does not. Suited to a database opened WithReadOnly.
func NewMessageReader(db *badger.DB, index *bluge.Writer, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, index: index, log: log, limitMessages: limitMessages}
}

func (m MessageRepository) Close() error {
	if m.seq == nil {
		return nil
	}
	return m.seq.Release()
}

// StoreMessage assigns the message its persistent id, journals it and
// indexes its content. The returned message carries the assigned id.
// The key is formatted as "msg:{chat_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message domain.Message) (domain.Message, error) {
	if m.seq == nil {
		return domain.Message{}, fmt.Errorf("message repository opened read-only")
	}
	if message.ID == 0 {
		next, err := m.seq.Next()
		if err != nil {
			return domain.Message{}, err
		}
		message.ID = int(next) + 1
	}
	at := message.Timestamp.UnixNano()
	if at < 0 {
		// A zero or pre-epoch timestamp would carry a minus sign that
		// breaks the lexicographic ordering of the zero-padded key.
		at = 0
	}
	key := fmt.Sprintf("msg:%d:%019d:%s",
		message.ChatID,
		at,
		uuid.New(),
	)
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	if m.index != nil {
		doc := bluge.NewDocument(key).
			AddField(bluge.NewTextField("content", message.Content)).
			AddField(bluge.NewKeywordField("sender", message.SenderUsername))
		if err := m.index.Update(doc.ID(), doc); err != nil {
			return domain.Message{}, err
		}
	}
	return message, nil
}

// MessagesOf retrieves the journal of a chat in chronological order.
// Thanks to the padded timestamp in the key, no sort pass is needed.
// It stops collecting messages once the configured limitMessages is reached.
func (m MessageRepository) MessagesOf(chatID domain.ChatID) ([]domain.Message, error) {
	var records []messageRecord
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%d:", chatID))
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if m.limitMessages != nil && len(records) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			var record messageRecord
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(records))
	for _, record := range records {
		message, err := toMessage(record)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// Search runs a full-text query against the content index and resolves
// each hit back to its stored message.
func (m MessageRepository) Search(terms string, limit int) ([]domain.Message, error) {
	if m.index == nil {
		return nil, fmt.Errorf("message index is disabled")
	}
	reader, err := m.index.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewMatchQuery(terms).SetField("content")
	request := bluge.NewTopNSearch(limit, query)
	iterator, err := reader.Search(context.Background(), request)
	if err != nil {
		return nil, err
	}

	var keys []string
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				keys = append(keys, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	var messages []domain.Message
	err = m.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if err == badger.ErrKeyNotFound {
				// The journal entry may have been purged after indexing.
				continue
			}
			if err != nil {
				return err
			}
			var record messageRecord
			err = item.Value(func(value []byte) error {
				return json.Unmarshal(value, &record)
			})
			if err != nil {
				return err
			}
			message, err := toMessage(record)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func fromMessage(message domain.Message) messageRecord {
	return messageRecord{
		ID:             message.ID,
		SenderID:       message.SenderID,
		ChatID:         int(message.ChatID),
		Content:        message.Content,
		Timestamp:      message.Timestamp.Format(wire.TimeLayout),
		SenderUsername: message.SenderUsername,
	}
}

func toMessage(record messageRecord) (domain.Message, error) {
	at, err := time.ParseInLocation(wire.TimeLayout, record.Timestamp, time.Local)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             record.ID,
		SenderID:       record.SenderID,
		ChatID:         domain.ChatID(record.ChatID),
		Content:        record.Content,
		Timestamp:      at,
		SenderUsername: record.SenderUsername,
	}, nil
}
