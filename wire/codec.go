// Package wire implements the line codec of the relay protocol: one JSON
// object per physical line, UTF-8, no framing beyond the line separator.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"
)

// TimeLayout renders timestamps as zone-less local date-times with full
// precision, so a round-trip preserves the wall-clock value exactly.
const TimeLayout = "2006-01-02T15:04:05.999999999"

// envelope mirrors the JSON wire shape of a message.
type envelope struct {
	ID             int    `json:"id"`
	SenderID       int    `json:"senderId"`
	ChatID         int    `json:"chatId"`
	Content        string `json:"content"`
	Timestamp      string `json:"timestamp,omitempty"`
	SenderUsername string `json:"senderUsername,omitempty"`
}

// Encode serializes a message to a single line, without the trailing line
// separator. The output never contains an embedded line terminator: JSON
// string escaping guarantees it for the payload, and the timestamp layout
// for the rest.
func Encode(m domain.Message) ([]byte, error) {
	env := envelope{
		ID:             m.ID,
		SenderID:       m.SenderID,
		ChatID:         int(m.ChatID),
		Content:        m.Content,
		SenderUsername: m.SenderUsername,
	}
	if !m.Timestamp.IsZero() {
		env.Timestamp = m.Timestamp.Format(TimeLayout)
	}
	line, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedLine, err)
	}
	return line, nil
}

// Decode parses one received line back into a message. Any line that is not
// a well-formed envelope fails with ErrMalformedLine, which is fatal to the
// connection that produced it.
func Decode(line []byte) (domain.Message, error) {
	line = bytes.TrimRight(line, "\r")

	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrMalformedLine, err)
	}

	var ts time.Time
	if env.Timestamp != "" {
		parsed, err := time.ParseInLocation(TimeLayout, env.Timestamp, time.Local)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: bad timestamp %q", errors.ErrMalformedLine, env.Timestamp)
		}
		ts = parsed
	}

	return domain.Message{
		ID:             env.ID,
		SenderID:       env.SenderID,
		ChatID:         domain.ChatID(env.ChatID),
		Content:        env.Content,
		Timestamp:      ts,
		SenderUsername: env.SenderUsername,
	}, nil
}
