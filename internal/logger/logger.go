package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Format is "console" or "json".
func Init(level, format string) error {
	return InitWriter(level, format, os.Stdout)
}

// InitWriter is Init with an explicit output.
func InitWriter(level, format string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	switch strings.ToLower(format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
