package internal

import (
	"time"
)

type Config struct {
	Host           string `env:"HOST,required=true"`
	Port           int    `env:"PORT,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	// JournalFilepath is the sender-side message history database. It is
	// separate from BadgerFilepath because the relay holds the write lock
	// on the latter and never persists messages itself.
	JournalFilepath string        `env:"JOURNAL_FILEPATH"`
	BlugeFilepath   string        `env:"BLUGE_FILEPATH"`
	LimitMessages   *int          `env:"LIMIT_MESSAGES"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,required=true"`

	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	AuthTokenKey      string        `env:"AUTH_TOKEN_KEY,required=true"`

	EnableModeration bool `env:"ENABLE_MODERATION,required=true"`
}
