package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/pkg/correlation/correlationtest"
)

// TestStore runs against a live database when HUBSYNC_TEST_DATABASE_URL is set.
func TestStore(t *testing.T) {
	dsn := os.Getenv("HUBSYNC_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("HUBSYNC_TEST_DATABASE_URL not set")
	}

	correlationtest.Run(t, func(t *testing.T) correlationtest.Backend {
		s, err := Open(dsn)
		require.NoError(t, err)
		_, err = s.DB().ExecContext(context.Background(), `TRUNCATE correlations, synchronizations`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpenWithoutDSN(t *testing.T) {
	t.Setenv("HUBSYNC_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	_, err := Open("")
	require.Error(t, err)
}

func TestOpenWithNilDB(t *testing.T) {
	_, err := OpenWithDB(nil)
	require.Error(t, err)
}
