package app

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync/pkg/logging"
)

var logLevels = []string{"trace", "debug", "info", "warn", "error"}

// NewLogger builds the process logger from the resolved configuration.
func NewLogger(config *Config) zerolog.Logger {
	return logging.NewLoggerFromConfig(logging.Config{
		Level:   logLevel(config, os.Stderr),
		Format:  config.LogFormat,
		Output:  config.LogOutput,
		NoColor: config.NoColor,
	})
}

// logLevel picks --log-level (or LOG_LEVEL), then -q, then -v, then info.
// An unknown level is reported on warn and replaced by info.
func logLevel(config *Config, warn io.Writer) string {
	switch {
	case config.LogLevel != "":
		if slices.Contains(logLevels, config.LogLevel) {
			return config.LogLevel
		}
		_, _ = fmt.Fprintf(warn, "Warning: unknown log level %q, using info\n", config.LogLevel)
		return "info"
	case config.Quiet:
		return "warn"
	case config.Verbose:
		return "debug"
	}
	return "info"
}
