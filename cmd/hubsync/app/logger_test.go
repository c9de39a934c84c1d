package app

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
		warns  bool
	}{
		{name: "default", want: "info"},
		{name: "verbose", config: Config{Verbose: true}, want: "debug"},
		{name: "quiet", config: Config{Quiet: true}, want: "warn"},
		{name: "quiet wins over verbose", config: Config{Verbose: true, Quiet: true}, want: "warn"},
		{name: "explicit level", config: Config{LogLevel: "error"}, want: "error"},
		{name: "explicit level beats quiet", config: Config{LogLevel: "trace", Quiet: true}, want: "trace"},
		{name: "unknown level falls back", config: Config{LogLevel: "loud"}, want: "info", warns: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warn bytes.Buffer
			assert.Equal(t, tt.want, logLevel(&tt.config, &warn))
			if tt.warns {
				assert.Contains(t, warn.String(), `"loud"`)
			} else {
				assert.Empty(t, warn.String())
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	old := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(old) })

	logger := NewLogger(&Config{Verbose: true, LogFormat: "json", LogOutput: "discard"})
	assert.Equal(t, "debug", logger.GetLevel().String())
}
