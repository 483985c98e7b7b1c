// Package logging sets up the process-wide zerolog.Logger the way the
// teacher's cmd/alexander-server/main.go does: an RFC3339Nano console
// writer during development, a parsed level from configuration, and a
// single component-scoped child logger handed to every package that
// needs one.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the root logger.
type Options struct {
	// Level is parsed with zerolog.ParseLevel; an unparseable or empty
	// value falls back to zerolog.InfoLevel, matching the teacher's
	// "level, err := zerolog.ParseLevel(...); if err != nil { level = Info }".
	Level string
	// Pretty selects a human-readable ConsoleWriter (development) over
	// structured JSON (production).
	Pretty bool
	Output io.Writer
}

// New builds the root logger and sets zerolog's global level as a side
// effect, matching the teacher's main.go startup sequence.
func New(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	return zerolog.New(out).With().Timestamp().Logger()
}

// Component returns a child logger scoped to one component name, matching
// the teacher's logger.With().Str("component", name).Logger() convention
// used throughout internal/auth and internal/service.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
