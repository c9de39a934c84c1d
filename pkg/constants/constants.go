// Package constants provides shared constants used throughout the hubsync codebase.
// This includes timeouts, limits, wire-format names and other configuration values
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the Hub and External APIs
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultSyncInterval is the default interval between scheduled sync cycles
	DefaultSyncInterval = 1 * time.Hour

	// SyncTimeout is the timeout for one organization sync cycle
	SyncTimeout = 30 * time.Minute

	// ShutdownTimeout bounds graceful shutdown of the CLI
	ShutdownTimeout = 5 * time.Second
)

// FilePermissions is the permission of created log files (rw-r--r--)
const FilePermissions = 0644

// Limit constants define various limits and capacities
const (
	// DefaultBatchSize is the number of operations per Hub batch request
	DefaultBatchSize = 100

	// MaxBatchSize is the largest batch the Hub batch endpoint accepts
	MaxBatchSize = 1000

	// MaxMessageLength is the maximum length of an error message stored on a correlation
	MaxMessageLength = 255

	// MaxConcurrentOrganizations is the default number of organizations synced in parallel
	MaxConcurrentOrganizations = 5
)

// Rate limiting constants
const (
	// DefaultRateLimit is the default requests per second sent to the Hub
	DefaultRateLimit = 10.0

	// BurstSize is the token bucket burst size for rate limiting
	BurstSize = 5
)

// Wire-format names shared by the Hub codec and the reconciler
const (
	// HubProvider is the provider value marking the Hub's own identity in an id list
	HubProvider = "hub"

	// HubIDField is the metadata key carrying a Hub id through External-shape mapping
	HubIDField = "__hub_id"

	// UpdatedAtField is the Hub record field holding its last update time
	UpdatedAtField = "updated_at"

	// PaginationField is the top-level key holding the Hub pagination cursor
	PaginationField = "pagination"
)
