// Package domain contains core concepts of the messaging system.
// This file defines the Message value entity and its construction rules.
// Messages are immutable once placed on the wire.
package domain

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"chat-relay/errors"
)

var validate = validator.New()

// Message is one chat event exchanged between participants.
//
// ID is assigned by the message store; it stays 0 for messages that were
// never persisted and for synthetic system messages. SenderUsername is a
// display label stamped by the server from the authenticated connection;
// the value carried by a client is never trusted.
type Message struct {
	ID             int
	SenderID       int // 0 is reserved for the synthetic "system" sender
	ChatID         ChatID
	Content        string `validate:"required"`
	Timestamp      time.Time
	SenderUsername string
}

// NewMessage builds a not-yet-persisted message stamped with the local
// wall-clock time of the originating process.
func NewMessage(senderID int, chatID ChatID, content string) Message {
	return Message{
		SenderID:  senderID,
		ChatID:    chatID,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Validate checks the rules an outbound message must satisfy before it may
// be encoded. Content must not carry a line terminator: the wire format is
// one message per physical line.
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}
	if m.ChatID <= 0 {
		return errors.ErrUnknownChat
	}
	if strings.ContainsAny(m.Content, "\n\r") {
		return errors.ErrLineBreakInContent
	}
	return nil
}
