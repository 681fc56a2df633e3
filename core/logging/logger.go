// Package logging wires structured, component-scoped logging for the
// daemon and CLI.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Init configures the global zerolog level and writer from the given
// level string ("debug", "info", "warn", "error") and format ("json" or
// "console"). Unrecognized levels fall back to info.
func Init(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var w io.Writer = os.Stderr
	if strings.ToLower(format) != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	zerolog.DefaultContextLogger = nil
	base = zerolog.New(w).With().Timestamp().Logger()
}

var base = zerolog.New(os.Stderr).With().Timestamp().Logger()

// For returns a logger scoped to the named component (e.g. "store",
// "retrieval", "daemon").
func For(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
