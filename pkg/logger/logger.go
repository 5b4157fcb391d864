package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the process-wide logger. The prioritization engine never logs; only
// the transport, the backlog store and the worker do.
var Log zerolog.Logger

func init() {
	Configure(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

// Configure rebuilds Log. Production emits JSON to stdout, any other
// environment pretty prints to stderr. An unknown level falls back to info.
func Configure(env, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	Log = zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "taskprio").
		Logger()

	if env != "production" {
		Log = Log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
