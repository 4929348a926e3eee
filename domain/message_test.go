package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func Test_New_Message_Is_Stamped(t *testing.T) {
	req := require.New(t)

	message := NewMessage(1, ChatID(2), "hello")

	req.Equal(1, message.SenderID)
	req.Equal(ChatID(2), message.ChatID)
	req.False(message.Timestamp.IsZero())
	req.Zero(message.ID)
	req.Empty(message.SenderUsername)
}

func Test_Validate(t *testing.T) {
	req := require.New(t)

	req.NoError(NewMessage(1, ChatID(1), "fine").Validate())

	// Empty content
	req.Error(NewMessage(1, ChatID(1), "").Validate())

	// Non-positive chat id
	req.ErrorIs(NewMessage(1, ChatID(0), "hello").Validate(), errors.ErrUnknownChat)
	req.ErrorIs(NewMessage(1, ChatID(-3), "hello").Validate(), errors.ErrUnknownChat)

	// Physical line breaks would corrupt the framing
	req.ErrorIs(NewMessage(1, ChatID(1), "two\nlines").Validate(), errors.ErrLineBreakInContent)
	req.ErrorIs(NewMessage(1, ChatID(1), "carriage\rreturn").Validate(), errors.ErrLineBreakInContent)

	// An escaped sequence in the source text is ordinary content
	req.NoError(NewMessage(1, ChatID(1), `literal \n backslash-n`).Validate())
}
