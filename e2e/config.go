package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

// Config targets a relay that is already running and seeded: the suite
// never starts processes itself.
type Config struct {
	RelayHost string `envconfig:"RELAY_HOST"`
	RelayPort int    `envconfig:"RELAY_PORT" default:"7777"`
	// Two user ids that must exist and share ChatID
	SenderID   int `envconfig:"E2E_SENDER_ID" default:"1"`
	ReceiverID int `envconfig:"E2E_RECEIVER_ID" default:"2"`
	ChatID     int `envconfig:"E2E_CHAT_ID" default:"1"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
