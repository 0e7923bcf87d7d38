package internal

import (
	"fmt"
	"time"
)

// Config is shared by every binary that touches the gateway's state. Values
// come from the environment, optionally seeded from a .env file.
type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=8080"`
	DebugPort int    `env:"DEBUG_PORT"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	CharReplacement string `env:"CHARACTER_REPLACEMENT,required=true"`
	LimitMessages   *int   `env:"LIMIT_MESSAGES"`
	IndexQueueSize  int    `env:"INDEX_QUEUE_SIZE,default=1024"`

	RestartInterval   time.Duration `env:"RESTART_INTERVAL,required=true"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,required=true"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
