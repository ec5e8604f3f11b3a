// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a human-readable logger in development and JSON otherwise.
func New(development bool) zerolog.Logger {
	return newLogger(os.Stdout, development)
}

func newLogger(out io.Writer, development bool) zerolog.Logger {
	if development {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if development {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
