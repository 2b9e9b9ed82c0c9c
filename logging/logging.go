// Package logging owns the shared structured logger used by all consortia
// packages. The default logger writes human-readable output to stderr at
// warn level; embedders can swap it for their own zerolog.Logger via
// SetLogger (for instance to silence it in tests or to emit JSON).
package logging

import (
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// defaultLogger is the out-of-the-box logger: console writer, warn level.
// Matching the library convention of being quiet unless something is off.
var defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
	Level(zerolog.WarnLevel).
	With().Timestamp().Logger()

var current atomic.Pointer[zerolog.Logger]

func init() {
	current.Store(&defaultLogger)
}

// L returns the currently installed logger. Safe for concurrent use.
func L() *zerolog.Logger {
	return current.Load()
}

// SetLogger installs l as the shared logger for all consortia packages.
func SetLogger(l zerolog.Logger) {
	current.Store(&l)
}

// SetLevel replaces the current logger with a copy at the given level.
// Convenience for turning on informational build/solve logs.
func SetLevel(level zerolog.Level) {
	next := current.Load().Level(level)
	current.Store(&next)
}
