package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/errors"
)

func TestCodec_RoundTrip(t *testing.T) {
	req := require.New(t)

	// Given a fully populated message with nanosecond precision
	sent := domain.Message{
		ID:             42,
		SenderID:       7,
		ChatID:         domain.ChatID(10),
		Content:        "on se capte à 18h ?",
		Timestamp:      time.Date(2026, 8, 27, 13, 45, 30, 123456789, time.Local),
		SenderUsername: "alice",
	}

	// When the message goes through an encode/decode cycle
	line, err := Encode(sent)
	req.NoError(err)
	got, err := Decode(line)
	req.NoError(err)

	// Then every field survives, timestamp included
	req.Equal(sent.ID, got.ID)
	req.Equal(sent.SenderID, got.SenderID)
	req.Equal(sent.ChatID, got.ChatID)
	req.Equal(sent.Content, got.Content)
	req.Equal(sent.SenderUsername, got.SenderUsername)
	req.True(sent.Timestamp.Equal(got.Timestamp))
}

func TestCodec_RoundTrip_UnsetFields(t *testing.T) {
	req := require.New(t)

	// Given a not-yet-persisted message from the system sender
	sent := domain.Message{ChatID: 1, Content: "maintenance in 5 minutes"}

	line, err := Encode(sent)
	req.NoError(err)
	got, err := Decode(line)
	req.NoError(err)

	req.Zero(got.ID)
	req.Zero(got.SenderID)
	req.Empty(got.SenderUsername)
	req.True(got.Timestamp.IsZero())
	req.Equal(sent.Content, got.Content)
}

func TestCodec_EncodedLineHasNoLineTerminator(t *testing.T) {
	req := require.New(t)

	msg := domain.NewMessage(1, 10, "first part \\n still one line")
	line, err := Encode(msg)
	req.NoError(err)

	req.NotContains(string(line), "\n")
	req.NotContains(string(line), "\r")
}

func TestCodec_EscapedNewlineStaysOnOneLine(t *testing.T) {
	req := require.New(t)

	// JSON escaping keeps a embedded newline off the physical line; the
	// domain validation is what forbids it upstream.
	msg := domain.Message{ChatID: 1, Content: "a\nb"}
	line, err := Encode(msg)
	req.NoError(err)
	req.False(bytes.ContainsRune(line, '\n'))

	got, err := Decode(line)
	req.NoError(err)
	req.Equal("a\nb", got.Content)

	req.Error(msg.Validate())
}

func TestCodec_Decode_MalformedLine(t *testing.T) {
	req := require.New(t)

	for _, line := range []string{
		"not json at all",
		`{"id": "twelve"}`,
		`{"chatId": 10, "timestamp": "yesterday"}`,
		"",
	} {
		_, err := Decode([]byte(line))
		req.ErrorIs(err, errors.ErrMalformedLine, "line %q", line)
	}
}

func TestCodec_Decode_ToleratesCarriageReturn(t *testing.T) {
	req := require.New(t)

	line, err := Encode(domain.Message{ChatID: 3, Content: "hi"})
	req.NoError(err)

	got, err := Decode(append(line, '\r'))
	req.NoError(err)
	req.Equal("hi", got.Content)
}
