// Package logging builds the zerolog loggers used by the CLI and the server.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the logger output.
type Options struct {
	// Level is a zerolog level name. Unknown names fall back to info.
	Level string
	// Format is "console" for human output or "json".
	Format string
	// Out defaults to stderr.
	Out io.Writer
}

// New returns a timestamped logger.
func New(opt Options) zerolog.Logger {
	out := opt.Out
	if out == nil {
		out = os.Stderr
	}
	if !strings.EqualFold(opt.Format, "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(ParseLevel(opt.Level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
