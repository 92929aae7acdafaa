package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects how sync logs are written.
type Config struct {
	Level string // trace, debug, info, warn, error or off

	// Format is json, console or auto. Auto picks console on a terminal.
	Format string

	// Output is stderr, stdout, discard or a file path appended to.
	Output string

	NoColor   bool
	AddCaller bool
}

// NewLoggerFromConfig builds a logger and sets zerolog's global level to
// match. A nil config logs info and above to stderr.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(cfg.writer()).Level(level).With().Timestamp().Logger()
	if cfg.AddCaller {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// ParseLevel maps a level name to a zerolog level. Unknown names are info.
func ParseLevel(name string) zerolog.Level {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	}
	if l, err := zerolog.ParseLevel(name); err == nil && l != zerolog.NoLevel {
		return l
	}
	return zerolog.InfoLevel
}

func (cfg *Config) writer() io.Writer {
	var out io.Writer = os.Stderr
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	case "discard", "none":
		return io.Discard
	default:
		// Unopenable log files fall back to stderr rather than failing a sync.
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			out = f
		}
	}

	console := strings.EqualFold(cfg.Format, "console") || strings.EqualFold(cfg.Format, "pretty")
	if cfg.Format == "" || strings.EqualFold(cfg.Format, "auto") {
		f, ok := out.(*os.File)
		console = ok && isTerminal(f)
	}
	if !console {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: cfg.NoColor}
}
