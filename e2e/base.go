package e2e

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/network"
)

// BaseRelaySuite connects real TCP clients to an externally running relay.
// Tests are skipped when RELAY_HOST is not set.
type BaseRelaySuite struct {
	suite.Suite
	Config Config
	log    *slog.Logger
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayHost == "" {
		s.T().Skip("RELAY_HOST not set, skipping end-to-end suite")
	}
	s.log = logs.GetLoggerFromString("INFO")
}

// Connect opens a relay client for the given user and fails the suite if
// the handshake cannot complete.
func (s *BaseRelaySuite) Connect(name string, userID int, handler contract.MessageHandler) *network.ChatClient {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	client := network.NewChatClient(s.Config.RelayHost, s.Config.RelayPort, userID, handler, s.log)
	s.Require().NoError(client.Start(), "Failed to connect to relay as user %d", userID)
	return client
}

// WaitForMessage blocks until a message arrives on the inbox or the
// timeout elapses.
func (s *BaseRelaySuite) WaitForMessage(inbox <-chan domain.Message, timeout time.Duration) domain.Message {
	select {
	case message := <-inbox:
		return message
	case <-time.After(timeout):
		s.FailNow("no message received within " + timeout.String())
		return domain.Message{}
	}
}
