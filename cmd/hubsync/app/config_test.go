package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/pkg/constants"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.StoreDriver)
	assert.Equal(t, "/api/v2", config.HubAPIPath)
	assert.Equal(t, constants.DefaultBatchSize, config.BatchSize)
	assert.Equal(t, constants.MaxConcurrentOrganizations, config.Concurrency)
	assert.Equal(t, constants.DefaultSyncInterval, config.SyncInterval)
	assert.Equal(t, "auto", config.LogFormat)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("HUBSYNC_HUB_URL", "https://hub.test")
	t.Setenv("HUBSYNC_STORE_DRIVER", "postgres")
	t.Setenv("HUBSYNC_SYNC_INTERVAL", "15m")
	t.Setenv("HUBSYNC_SYNC_BATCH_SIZE", "25")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://hub.test", config.HubURL)
	assert.Equal(t, "postgres", config.StoreDriver)
	assert.Equal(t, 15*time.Minute, config.SyncInterval)
	assert.Equal(t, 25, config.BatchSize)
}

func TestUpdateFromFlags(t *testing.T) {
	config := &Config{Format: "table", LogLevel: "info"}

	config.UpdateFromFlags(true, false, true, "", "")
	assert.True(t, config.Verbose)
	assert.True(t, config.NoColor)
	assert.Equal(t, "table", config.Format)
	assert.Equal(t, "info", config.LogLevel)

	config.UpdateFromFlags(false, true, false, "json", "debug")
	assert.False(t, config.Verbose)
	assert.True(t, config.Quiet)
	assert.Equal(t, "json", config.Format)
	assert.Equal(t, "debug", config.LogLevel)
}
