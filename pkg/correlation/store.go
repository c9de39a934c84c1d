package correlation

import (
	"context"

	"github.com/agentstation/utc"
)

// Store persists correlations. Implementations must be safe for concurrent
// use; callers serialize runs per organization so that a single correlation
// only has one writer at a time.
type Store interface {
	// FindOrCreate returns the first correlation matching the key, creating
	// one with default bookkeeping when none exists.
	FindOrCreate(ctx context.Context, key Key) (*Correlation, error)

	// Find returns the first correlation matching the key or a NotFoundError.
	Find(ctx context.Context, key Key) (*Correlation, error)

	// Create always inserts a new correlation for the key.
	Create(ctx context.Context, key Key) (*Correlation, error)

	// Update applies fields to c and persists the result.
	Update(ctx context.Context, c *Correlation, fields Fields) error

	// List returns the correlations of an organization matching the filter,
	// ordered by creation time.
	List(ctx context.Context, organizationID string, filter Filter) ([]*Correlation, error)
}

// Filter narrows List results.
type Filter struct {
	HubEntity      string
	ExternalEntity string
	// Failed keeps only correlations carrying an error message.
	Failed bool
	// Limit caps the number of results when positive.
	Limit int
}

// Keep reports whether c passes the filter.
func (f Filter) Keep(c *Correlation) bool {
	if f.HubEntity != "" && c.HubEntity != f.HubEntity {
		return false
	}
	if f.ExternalEntity != "" && c.ExternalEntity != f.ExternalEntity {
		return false
	}
	if f.Failed && c.Message == "" {
		return false
	}
	return true
}

// Status is the outcome of a synchronization run.
type Status string

// Synchronization statuses.
const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// Synchronization records one sync cycle of an organization.
type Synchronization struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Status         Status    `json:"status"`
	Message        string    `json:"message,omitempty"`
	StartedAt      utc.Time  `json:"started_at"`
	FinishedAt     *utc.Time `json:"finished_at,omitempty"`
}

// History persists synchronization runs. The start time of the last
// successful run bounds the next incremental fetch.
type History interface {
	Start(ctx context.Context, organizationID string) (*Synchronization, error)
	Finish(ctx context.Context, s *Synchronization, status Status, message string) error
	// LastSuccess returns the most recent successful run or a NotFoundError.
	LastSuccess(ctx context.Context, organizationID string) (*Synchronization, error)
	Recent(ctx context.Context, organizationID string, limit int) ([]*Synchronization, error)
}
