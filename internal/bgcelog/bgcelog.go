// SPDX-License-Identifier: Unlicense OR MIT

// Package bgcelog constructs the per-subsystem structured loggers other
// packages obtain by calling For, all writing through one
// console-formatted sink to stdout.
package bgcelog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
	With().
	Timestamp().
	Logger()

// For returns a logger tagged with subsystem=name, e.g. "server",
// "session", "input", "compositor".
func For(subsystem string) zerolog.Logger {
	return base.With().Str("subsystem", subsystem).Logger()
}

// SetLevel adjusts the global minimum log level (e.g. from a -v flag).
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}
