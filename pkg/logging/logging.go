// Package logging configures the global zerolog logger for the CLI.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at w (stderr when nil) using a console
// writer. An unknown level falls back to warn.
func Setup(w io.Writer, level string) zerolog.Level {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		With().
		Timestamp().
		Logger()

	return lvl
}

// Level picks the level from the CLI flags, with debug taking precedence over
// verbose and both over the configured level.
func Level(configured string, verbose, debug bool) string {
	switch {
	case debug:
		return zerolog.LevelDebugValue
	case verbose:
		return zerolog.LevelInfoValue
	default:
		return configured
	}
}
