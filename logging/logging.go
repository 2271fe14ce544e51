// Package logging holds the process-wide zerolog logger. Diagnostic output
// (dropped columns, unparseable constraints, skipped relations) goes through
// here; user-facing CLI output stays on stdout in the commands themselves.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && l != zerolog.NoLevel {
		level = l
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

// Logger returns the shared logger.
func Logger() zerolog.Logger {
	return logger
}

// SetLogger replaces the shared logger, for tests that capture output.
func SetLogger(l zerolog.Logger) {
	logger = l
}

func Debug() *zerolog.Event { return logger.Debug() }
func Info() *zerolog.Event  { return logger.Info() }
func Warn() *zerolog.Event  { return logger.Warn() }
func Error() *zerolog.Event { return logger.Error() }
