// Package sqlstore implements correlation.Store and correlation.History on
// top of database/sql. The sqlite and postgres packages open the database,
// create the schema and hand the connection to this package.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
)

// Dialect captures the differences between supported databases.
type Dialect int

const (
	// SQLite uses ? placeholders.
	SQLite Dialect = iota
	// Postgres uses $n placeholders.
	Postgres
)

// Rebind rewrites ? placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is a SQL backed correlation store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() utc.Time
}

// New wraps an open database whose schema already exists.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: utc.Now}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

const correlationColumns = `id, organization_id, hub_entity, external_entity, hub_id, external_id, name,
	last_push_to_hub, last_push_to_external, external_inactive, to_hub, to_external, message,
	created_at, updated_at`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindOrCreate implements correlation.Store.
func (s *Store) FindOrCreate(ctx context.Context, key correlation.Key) (*correlation.Correlation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WrapResource("begin", "transaction", "", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	c, err := s.find(ctx, tx, key)
	if err == nil {
		return c, tx.Commit()
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	c = correlation.New(uuid.NewString(), key, s.now())
	if err := s.insert(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.WrapResource("commit", "correlation", c.ID, err)
	}
	return c, nil
}

// Find implements correlation.Store.
func (s *Store) Find(ctx context.Context, key correlation.Key) (*correlation.Correlation, error) {
	return s.find(ctx, s.db, key)
}

// Create implements correlation.Store.
func (s *Store) Create(ctx context.Context, key correlation.Key) (*correlation.Correlation, error) {
	c := correlation.New(uuid.NewString(), key, s.now())
	if err := s.insert(ctx, s.db, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update implements correlation.Store. The stored row is re-read inside the
// transaction so a stale c does not overwrite fields it did not touch.
func (s *Store) Update(ctx context.Context, c *correlation.Correlation, fields correlation.Fields) error {
	if c == nil {
		return errors.NewValidationError("correlation", nil, "correlation is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapResource("begin", "transaction", "", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+correlationColumns+` FROM correlations WHERE id = ?`), c.ID)
	stored, err := scanCorrelation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.WrapResource("update", "correlation", c.ID, errors.ErrNotFound)
		}
		return errors.WrapResource("update", "correlation", c.ID, err)
	}

	now := s.now()
	fields.Apply(stored, now)

	_, err = tx.ExecContext(ctx, s.dialect.Rebind(`UPDATE correlations SET
		hub_id = ?, external_id = ?, name = ?, last_push_to_hub = ?, last_push_to_external = ?,
		external_inactive = ?, to_hub = ?, to_external = ?, message = ?, updated_at = ?
		WHERE id = ?`),
		stored.HubID, stored.ExternalID, stored.Name,
		nullTime(stored.LastPushToHub), nullTime(stored.LastPushToExternal),
		stored.ExternalInactive, stored.ToHub, stored.ToExternal, stored.Message,
		stored.UpdatedAt.Time.UTC(), stored.ID)
	if err != nil {
		return errors.WrapResource("update", "correlation", c.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.WrapResource("commit", "correlation", c.ID, err)
	}

	fields.Apply(c, now)
	return nil
}

// List implements correlation.Store.
func (s *Store) List(ctx context.Context, organizationID string, filter correlation.Filter) ([]*correlation.Correlation, error) {
	query := `SELECT ` + correlationColumns + ` FROM correlations WHERE organization_id = ?`
	args := []any{organizationID}
	if filter.HubEntity != "" {
		query += ` AND hub_entity = ?`
		args = append(args, filter.HubEntity)
	}
	if filter.ExternalEntity != "" {
		query += ` AND external_entity = ?`
		args = append(args, filter.ExternalEntity)
	}
	if filter.Failed {
		query += ` AND message <> ''`
	}
	query += ` ORDER BY seq`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, errors.WrapResource("list", "correlation", organizationID, err)
	}
	defer rows.Close()

	var out []*correlation.Correlation
	for rows.Next() {
		c, err := scanCorrelation(rows)
		if err != nil {
			return nil, errors.WrapResource("list", "correlation", organizationID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) find(ctx context.Context, q queryer, key correlation.Key) (*correlation.Correlation, error) {
	query := `SELECT ` + correlationColumns + ` FROM correlations
		WHERE organization_id = ? AND hub_entity = ? AND external_entity = ?`
	args := []any{key.OrganizationID, key.HubEntity, key.ExternalEntity}
	if key.HubID != "" {
		query += ` AND hub_id = ?`
		args = append(args, key.HubID)
	}
	if key.ExternalID != "" {
		query += ` AND external_id = ?`
		args = append(args, key.ExternalID)
	}
	query += ` ORDER BY seq LIMIT 1`

	c, err := scanCorrelation(q.QueryRowContext(ctx, s.dialect.Rebind(query), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("correlation", correlation.Describe(key))
		}
		return nil, errors.WrapResource("find", "correlation", correlation.Describe(key), err)
	}
	return c, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, e execer, c *correlation.Correlation) error {
	_, err := e.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO correlations (`+correlationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.OrganizationID, c.HubEntity, c.ExternalEntity, c.HubID, c.ExternalID, c.Name,
		nullTime(c.LastPushToHub), nullTime(c.LastPushToExternal),
		c.ExternalInactive, c.ToHub, c.ToExternal, c.Message,
		c.CreatedAt.Time.UTC(), c.UpdatedAt.Time.UTC())
	if err != nil {
		return errors.WrapResource("create", "correlation", c.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCorrelation(row scanner) (*correlation.Correlation, error) {
	var (
		c                     correlation.Correlation
		toHubAt, toExternalAt sql.NullTime
		createdAt, updatedAt  time.Time
	)
	err := row.Scan(&c.ID, &c.OrganizationID, &c.HubEntity, &c.ExternalEntity, &c.HubID, &c.ExternalID, &c.Name,
		&toHubAt, &toExternalAt, &c.ExternalInactive, &c.ToHub, &c.ToExternal, &c.Message,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.LastPushToHub = fromNullTime(toHubAt)
	c.LastPushToExternal = fromNullTime(toExternalAt)
	c.CreatedAt = utc.New(createdAt)
	c.UpdatedAt = utc.New(updatedAt)
	return &c, nil
}

func nullTime(t *utc.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.Time.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) *utc.Time {
	if !t.Valid {
		return nil
	}
	v := utc.New(t.Time)
	return &v
}
