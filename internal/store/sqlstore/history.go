package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
)

const synchronizationColumns = `id, organization_id, status, message, started_at, finished_at`

// Start implements correlation.History.
func (s *Store) Start(ctx context.Context, organizationID string) (*correlation.Synchronization, error) {
	sync := &correlation.Synchronization{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Status:         correlation.StatusRunning,
		StartedAt:      s.now(),
	}
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO synchronizations (`+synchronizationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`),
		sync.ID, sync.OrganizationID, string(sync.Status), "", sync.StartedAt.Time.UTC(), sql.NullTime{})
	if err != nil {
		return nil, errors.WrapResource("create", "synchronization", sync.ID, err)
	}
	return sync, nil
}

// Finish implements correlation.History.
func (s *Store) Finish(ctx context.Context, sync *correlation.Synchronization, status correlation.Status, message string) error {
	now := s.now()
	message = correlation.Truncate(message)

	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`UPDATE synchronizations
		SET status = ?, message = ?, finished_at = ? WHERE id = ?`),
		string(status), message, now.Time.UTC(), sync.ID)
	if err != nil {
		return errors.WrapResource("finish", "synchronization", sync.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.WrapResource("finish", "synchronization", sync.ID, errors.ErrNotFound)
	}

	sync.Status = status
	sync.Message = message
	sync.FinishedAt = &now
	return nil
}

// LastSuccess implements correlation.History.
func (s *Store) LastSuccess(ctx context.Context, organizationID string) (*correlation.Synchronization, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+synchronizationColumns+` FROM synchronizations
		WHERE organization_id = ? AND status = ? ORDER BY started_at DESC, seq DESC LIMIT 1`),
		organizationID, string(correlation.StatusSuccess))
	sync, err := scanSynchronization(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("synchronization", organizationID)
		}
		return nil, errors.WrapResource("find", "synchronization", organizationID, err)
	}
	return sync, nil
}

// Recent implements correlation.History.
func (s *Store) Recent(ctx context.Context, organizationID string, limit int) ([]*correlation.Synchronization, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`SELECT `+synchronizationColumns+` FROM synchronizations
		WHERE organization_id = ? ORDER BY started_at DESC, seq DESC LIMIT ?`), organizationID, limit)
	if err != nil {
		return nil, errors.WrapResource("list", "synchronization", organizationID, err)
	}
	defer rows.Close()

	var out []*correlation.Synchronization
	for rows.Next() {
		sync, err := scanSynchronization(rows)
		if err != nil {
			return nil, errors.WrapResource("list", "synchronization", organizationID, err)
		}
		out = append(out, sync)
	}
	return out, rows.Err()
}

func scanSynchronization(row scanner) (*correlation.Synchronization, error) {
	var (
		sync      correlation.Synchronization
		status    string
		startedAt time.Time
		finished  sql.NullTime
	)
	if err := row.Scan(&sync.ID, &sync.OrganizationID, &status, &sync.Message, &startedAt, &finished); err != nil {
		return nil, err
	}
	sync.Status = correlation.Status(status)
	sync.StartedAt = utc.New(startedAt)
	sync.FinishedAt = fromNullTime(finished)
	return &sync, nil
}
