package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	query := `SELECT id FROM correlations WHERE organization_id = ? AND hub_id = ?`

	assert.Equal(t, query, SQLite.Rebind(query))
	assert.Equal(t,
		`SELECT id FROM correlations WHERE organization_id = $1 AND hub_id = $2`,
		Postgres.Rebind(query))
}
