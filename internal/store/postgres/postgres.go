// Package postgres opens a Postgres backed correlation store.
package postgres

import (
	"database/sql"
	"errors"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/agentstation/hubsync/internal/store/sqlstore"
)

// Open connects to Postgres and ensures the schema exists. When dsn is empty
// HUBSYNC_DATABASE_URL and then DATABASE_URL are consulted.
func Open(dsn string) (*sqlstore.Store, error) {
	if dsn == "" {
		dsn = os.Getenv("HUBSYNC_DATABASE_URL")
	}
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("HUBSYNC_DATABASE_URL/DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s, err := OpenWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenWithDB reuses an existing *sql.DB.
func OpenWithDB(db *sql.DB) (*sqlstore.Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if err := ensureTables(db); err != nil {
		return nil, err
	}
	return sqlstore.New(db, sqlstore.Postgres), nil
}

func ensureTables(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS correlations (
  seq bigserial PRIMARY KEY,
  id text NOT NULL UNIQUE,
  organization_id text NOT NULL,
  hub_entity text NOT NULL,
  external_entity text NOT NULL,
  hub_id text NOT NULL DEFAULT '',
  external_id text NOT NULL DEFAULT '',
  name text NOT NULL DEFAULT '',
  last_push_to_hub timestamptz,
  last_push_to_external timestamptz,
  external_inactive boolean NOT NULL DEFAULT false,
  to_hub boolean NOT NULL DEFAULT true,
  to_external boolean NOT NULL DEFAULT true,
  message text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_correlations_hub
  ON correlations (organization_id, hub_entity, external_entity, hub_id);
CREATE INDEX IF NOT EXISTS idx_correlations_external
  ON correlations (organization_id, hub_entity, external_entity, external_id);
CREATE TABLE IF NOT EXISTS synchronizations (
  seq bigserial PRIMARY KEY,
  id text NOT NULL UNIQUE,
  organization_id text NOT NULL,
  status text NOT NULL,
  message text NOT NULL DEFAULT '',
  started_at timestamptz NOT NULL DEFAULT now(),
  finished_at timestamptz
);
CREATE INDEX IF NOT EXISTS idx_synchronizations_org
  ON synchronizations (organization_id, status, started_at);
`
	_, err := db.Exec(ddl)
	return err
}
