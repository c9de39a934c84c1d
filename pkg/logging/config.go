package logging

import (
	"io"
	"os"
	"strings"
	"time"

	goisatty "github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync/pkg/constants"
)

// Config selects the level, encoding and destination of the process logger.
type Config struct {
	// Level is trace, debug, info, warn or error. Anything else is info.
	Level string
	// Format is console, json, or auto: console when Output is a terminal.
	Format string
	// Output is stderr (the default), stdout, discard or a file path.
	Output  string
	NoColor bool
}

// NewLoggerFromConfig builds a logger and sets the zerolog global level.
// Debug and trace loggers record the caller. A file that cannot be opened
// falls back to stderr.
func NewLoggerFromConfig(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(writer(cfg)).
		Level(level).
		With().
		Timestamp().
		Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// Configure replaces the default logger.
func Configure(cfg Config) {
	SetDefault(NewLoggerFromConfig(cfg))
}

func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

func writer(cfg Config) io.Writer {
	out := output(cfg.Output)

	var console bool
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		console = true
	case "", "auto":
		f, ok := out.(*os.File)
		console = ok && goisatty.IsTerminal(f.Fd())
	}
	if !console {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		NoColor:    cfg.NoColor || os.Getenv("NO_COLOR") != "",
	}
}

func output(dest string) io.Writer {
	switch strings.ToLower(dest) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	case "discard", "none":
		return io.Discard
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return os.Stderr
	}
	return f
}
