package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Production writes JSON lines, everything
// else gets a console writer at debug level.
func New(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if environment == "production" {
		return zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().
			Timestamp().
			Str("env", environment).
			Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(zerolog.DebugLevel).With().
		Timestamp().
		Str("env", environment).
		Logger()
}
