package runtime

import (
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/wire"
)

// Broadcaster fans one inbound message out to every currently connected
// participant of its target chat, sender included when the sender holds a
// registered session.
//
// Delivery is best-effort: no acknowledgement, no retry, no offline
// queuing. A write failure on one session never blocks the remaining
// participants. Broadcaster is safe for concurrent use by the connection
// workers.
type Broadcaster struct {
	registry contract.IRegistry
	chats    contract.IChatDirectory
	log      *slog.Logger
}

func NewBroadcaster(registry contract.IRegistry, chats contract.IChatDirectory, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, chats: chats, log: log}
}

// Broadcast resolves the chat's participant set once, encodes the message
// once, and writes the line to every registered participant session.
//
// A membership resolution failure aborts the whole broadcast: the recipient
// set is unknown, so no partial fan-out is attempted. Membership is always
// resolved at delivery time, never cached.
func (b *Broadcaster) Broadcast(message domain.Message) error {
	participantIDs, err := b.chats.ParticipantsOf(message.ChatID)
	if err != nil {
		return fmt.Errorf("%w: chat %d: %v", errors.ErrMembershipLookup, message.ChatID, err)
	}
	participants := lo.SliceToMap(participantIDs, func(id int) (int, struct{}) {
		return id, struct{}{}
	})

	line, err := wire.Encode(message)
	if err != nil {
		return err
	}

	for _, session := range b.registry.Snapshot() {
		if _, ok := participants[session.UserID()]; !ok {
			continue
		}
		if err := session.WriteLine(line); err != nil {
			b.log.Error("delivery failed, continuing fan-out",
				"user_id", session.UserID(),
				"chat_id", message.ChatID,
				"error", err)
		}
	}
	return nil
}
