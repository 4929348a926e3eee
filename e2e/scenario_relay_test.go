package e2e

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chat-relay/domain"
)

type testRelayDeliverySuite struct {
	BaseRelaySuite
}

func TestRelayDeliverySuite(t *testing.T) {
	suite.Run(t, &testRelayDeliverySuite{})
}

func (s *testRelayDeliverySuite) TestMessageReachesOtherParticipant() {
	inbox := make(chan domain.Message, 16)

	receiver := s.Connect("Receiver connects", s.Config.ReceiverID, func(message domain.Message) {
		inbox <- message
	})
	defer receiver.Stop()

	sender := s.Connect("Sender connects", s.Config.SenderID, func(domain.Message) {})
	defer sender.Stop()

	// The relay resolves membership per message, so a connection made a
	// moment ago is already eligible.
	content := fmt.Sprintf("e2e probe %d", time.Now().UnixNano())

	s.Run("Step 1: Sender publishes into the shared chat", func() {
		message := domain.NewMessage(s.Config.SenderID, domain.ChatID(s.Config.ChatID), content)
		s.Require().NoError(sender.SendMessage(message))
	})

	s.Run("Step 2: Receiver observes the stamped message", func() {
		received := s.WaitForMessage(inbox, 10*time.Second)
		s.Require().Equal(content, received.Content)
		s.Require().Equal(s.Config.SenderID, received.SenderID)
		s.Require().Equal(domain.ChatID(s.Config.ChatID), received.ChatID)
		// The username always comes from the server-side identity, never
		// from what the sender claimed.
		s.Require().NotEmpty(received.SenderUsername)
	})
}

func (s *testRelayDeliverySuite) TestReconnectDisplacesPriorConnection() {
	first := s.Connect("First connection", s.Config.ReceiverID, func(domain.Message) {})
	defer first.Stop()

	inbox := make(chan domain.Message, 16)
	second := s.Connect("Second connection for same user", s.Config.ReceiverID, func(message domain.Message) {
		inbox <- message
	})
	defer second.Stop()

	sender := s.Connect("Sender connects", s.Config.SenderID, func(domain.Message) {})
	defer sender.Stop()

	content := fmt.Sprintf("e2e displacement probe %d", time.Now().UnixNano())
	message := domain.NewMessage(s.Config.SenderID, domain.ChatID(s.Config.ChatID), content)
	s.Require().NoError(sender.SendMessage(message))

	received := s.WaitForMessage(inbox, 10*time.Second)
	s.Require().Equal(content, received.Content)
}
