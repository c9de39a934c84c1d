package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/pkg/logging"
)

func TestFromContextDefault(t *testing.T) {
	logger := logging.FromContext(context.Background())
	assert.Equal(t, logging.Default(), logger)

	//nolint:staticcheck // nil context is handled explicitly
	assert.Equal(t, logging.Default(), logging.FromContext(nil))
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := logging.WithLogger(context.Background(), &logger)
	logging.FromContext(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestSyncFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := logging.WithLogger(context.Background(), &logger)
	ctx = logging.WithOrganization(ctx, "org-1")
	ctx = logging.WithEntity(ctx, "contact")
	ctx = logging.WithOperation(ctx, "fetch")
	ctx = logging.WithSynchronization(ctx, "sync-42")

	logging.FromContext(ctx).Info().Msg("page")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "org-1", entry["organization"])
	assert.Equal(t, "contact", entry["entity"])
	assert.Equal(t, "fetch", entry["operation"])
	assert.Equal(t, "sync-42", entry["synchronization"])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := logging.WithLogger(context.Background(), &logger)
	ctx = logging.WithFields(ctx, map[string]any{
		"batch":   2,
		"partial": true,
	})
	logging.FromContext(ctx).Info().Msg("push")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.EqualValues(t, 2, entry["batch"])
	assert.Equal(t, true, entry["partial"])
}
