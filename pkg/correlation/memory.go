package correlation

import (
	"context"
	"sort"
	"sync"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/hubsync/pkg/errors"
)

// Memory is an in-process Store and History. It is used in tests and for
// dry runs where nothing should outlive the process.
type Memory struct {
	mu    sync.RWMutex
	rows  []*Correlation
	byID  map[string]*Correlation
	syncs []*Synchronization
	now   func() utc.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID: make(map[string]*Correlation),
		now:  utc.Now,
	}
}

// SetClock overrides the time source used for bookkeeping timestamps.
func (m *Memory) SetClock(now func() utc.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FindOrCreate implements Store.
func (m *Memory) FindOrCreate(ctx context.Context, key Key) (*Correlation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c := m.find(key); c != nil {
		return c.Clone(), nil
	}
	return m.create(key).Clone(), nil
}

// Find implements Store.
func (m *Memory) Find(ctx context.Context, key Key) (*Correlation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c := m.find(key); c != nil {
		return c.Clone(), nil
	}
	return nil, errors.NewNotFoundError("correlation", Describe(key))
}

// Create implements Store.
func (m *Memory) Create(ctx context.Context, key Key) (*Correlation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(key).Clone(), nil
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, c *Correlation, fields Fields) error {
	if c == nil {
		return errors.NewValidationError("correlation", nil, "correlation is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[c.ID]
	if !ok {
		return errors.WrapResource("update", "correlation", c.ID, errors.ErrNotFound)
	}
	now := m.now()
	fields.Apply(stored, now)
	fields.Apply(c, now)
	return nil
}

// List implements Store.
func (m *Memory) List(ctx context.Context, organizationID string, filter Filter) ([]*Correlation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Correlation
	for _, c := range m.rows {
		if c.OrganizationID != organizationID || !filter.Keep(c) {
			continue
		}
		out = append(out, c.Clone())
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) find(key Key) *Correlation {
	for _, c := range m.rows {
		if key.Matches(c) {
			return c
		}
	}
	return nil
}

func (m *Memory) create(key Key) *Correlation {
	c := New(uuid.NewString(), key, m.now())
	m.rows = append(m.rows, c)
	m.byID[c.ID] = c
	return c
}

// Start implements History.
func (m *Memory) Start(ctx context.Context, organizationID string) (*Synchronization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Synchronization{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Status:         StatusRunning,
		StartedAt:      m.now(),
	}
	m.syncs = append(m.syncs, s)
	out := *s
	return &out, nil
}

// Finish implements History.
func (m *Memory) Finish(ctx context.Context, s *Synchronization, status Status, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, stored := range m.syncs {
		if stored.ID != s.ID {
			continue
		}
		now := m.now()
		stored.Status = status
		stored.Message = Truncate(message)
		stored.FinishedAt = &now
		*s = *stored
		return nil
	}
	return errors.WrapResource("finish", "synchronization", s.ID, errors.ErrNotFound)
}

// LastSuccess implements History.
func (m *Memory) LastSuccess(ctx context.Context, organizationID string) (*Synchronization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last *Synchronization
	for _, s := range m.syncs {
		if s.OrganizationID != organizationID || s.Status != StatusSuccess {
			continue
		}
		if last == nil || !s.StartedAt.Time.Before(last.StartedAt.Time) {
			last = s
		}
	}
	if last == nil {
		return nil, errors.NewNotFoundError("synchronization", organizationID)
	}
	out := *last
	return &out, nil
}

// Recent implements History.
func (m *Memory) Recent(ctx context.Context, organizationID string, limit int) ([]*Synchronization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Synchronization
	for i := len(m.syncs) - 1; i >= 0; i-- {
		if s := m.syncs[i]; s.OrganizationID == organizationID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Time.After(out[j].StartedAt.Time)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Describe renders a key for error messages.
func Describe(key Key) string {
	switch {
	case key.HubID != "":
		return key.OrganizationID + "/" + key.HubEntity + "/hub:" + key.HubID
	case key.ExternalID != "":
		return key.OrganizationID + "/" + key.ExternalEntity + "/external:" + key.ExternalID
	default:
		return key.OrganizationID + "/" + key.HubEntity
	}
}
