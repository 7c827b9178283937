// Package logging provides the component-tagged structured loggers used
// by the store: a package-scoped zerolog.Logger, with child loggers
// obtained via WithComponent. Only the root façade currently logs
// through it.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

var base = zerolog.New(os.Stderr).With().Timestamp().Logger()

// SetOutput redirects all component loggers to w. Tests use this to
// capture log output; callers embedding the store in a larger service
// use it to route logs into their own sink.
func SetOutput(w io.Writer) {
	base = zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel adjusts the global minimum level for every component logger.
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// WithComponent returns a child logger tagged with the given component
// name, e.g. "accessor", "cache", "cleanup", "snapshot".
func WithComponent(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
