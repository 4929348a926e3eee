//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
)

// MessageHandler receives inbound messages one at a time, in arrival order,
// from the session's receive loop. A plain function value is all a consumer
// needs; no listener interface is involved.
type MessageHandler func(message domain.Message)

// Outbound is the registry-facing handle of one live connection: the relay
// writes encoded lines to it and closes it when the session is evicted or
// the server stops. WriteLine must be safe for concurrent callers.
type Outbound interface {
	UserID() int
	WriteLine(line []byte) error
	Close() error
}

// IRegistry is the single source of truth for "who is online".
type IRegistry interface {
	// Put registers a session under its user id and returns the session it
	// displaced, if any.
	Put(userID int, session Outbound) (Outbound, bool)
	// Remove deletes the entry only while session is still the registered
	// one, so a stale disconnect handler never evicts a newer connection.
	Remove(userID int, session Outbound) bool
	Get(userID int) (Outbound, bool)
	Snapshot() []Outbound
	Len() int
}

// IUserDirectory answers identity questions for the handshake.
type IUserDirectory interface {
	UserExistsByID(id int) (bool, error)
	UserByID(id int) (domain.User, error)
}

// IChatDirectory answers "who belongs to chat X" for every broadcast.
type IChatDirectory interface {
	ParticipantsOf(chatID domain.ChatID) ([]int, error)
}

// IMessageStore persists message history on the sending side, before the
// message goes on the wire. The relay itself never stores messages.
type IMessageStore interface {
	StoreMessage(message domain.Message) (domain.Message, error)
	MessagesOf(chatID domain.ChatID) ([]domain.Message, error)
	Search(terms string, limit int) ([]domain.Message, error)
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
