package logging

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestWriterSelection(t *testing.T) {
	assert.Equal(t, io.Discard, writer(Config{Output: "discard", Format: "json"}))
	assert.Equal(t, os.Stdout, writer(Config{Output: "stdout", Format: "json"}))
	assert.IsType(t, zerolog.ConsoleWriter{}, writer(Config{Output: "discard", Format: "console"}))
}

func TestNewLoggerFromConfigWritesFile(t *testing.T) {
	old := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(old) })

	path := filepath.Join(t.TempDir(), "hubsync.log")
	logger := NewLoggerFromConfig(Config{Level: "warn", Format: "json", Output: path})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Info().Msg("dropped")
	logger.Warn().Str("organization", "org-1").Msg("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "org-1", entry["organization"])
}

func TestCaptureLoggingForTest(t *testing.T) {
	tl := CaptureLoggingForTest(t)
	Info().Str("organization", "org-1").Msg("captured")

	entry := tl.Find("captured")
	if assert.NotNil(t, entry) {
		assert.Equal(t, "org-1", entry["organization"])
	}
	tl.AssertCount(t, 1)
}
