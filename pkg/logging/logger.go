// Package logging provides structured logging for fitler using zerolog.
// Terminals get a human-readable console writer; everything else gets JSON
// so sync runs can be collected and queried.
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithSource(ctx, "strava")
//	logging.FromContext(ctx).Warn().Err(err).Msg("Fetch failed")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger = NewLoggerFromConfig(&Config{
	Level:   os.Getenv("LOG_LEVEL"),
	Format:  os.Getenv("LOG_FORMAT"),
	NoColor: os.Getenv("NO_COLOR") != "",
})

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog's global.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Warn starts a warning on the default logger, for code with no context.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
