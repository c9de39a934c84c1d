// Package sync sequences one synchronization cycle of an organization:
// fetch both sides, consolidate, push to the Hub, push to External, for
// every configured entity type.
package sync

import (
	"slices"
	"time"

	"github.com/agentstation/hubsync/pkg/constants"
	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/hub"
	"github.com/agentstation/hubsync/pkg/push"
	"github.com/agentstation/hubsync/pkg/reconciler"
)

// Options controls one sync call.
type Options struct {
	// Fetch control
	FullSync bool   // Ignore the last synchronization time
	Filter   string // Hub $filter conjoined with the incremental filter
	OrderBy  string // Hub $orderby

	// Conflict control
	Preemption push.Side // Side winning every conflict; empty compares update times

	// Push control
	BatchSize int // Operations per Hub batch call

	// Orchestration control
	Entities []string      // Entity types to sync by Hub or External name (empty means all)
	FailFast bool          // Stop at the first failing entity type
	Timeout  time.Duration // Timeout for the entire cycle
}

// Apply applies the given options to the sync options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{
		FullSync:  false,
		BatchSize: constants.DefaultBatchSize,
		FailFast:  false,
		Timeout:   0,
	}
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Validate checks if the sync options are valid.
func (s *Options) Validate() error {
	if s.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   s.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	if s.BatchSize <= 0 || s.BatchSize > constants.MaxBatchSize {
		return &errors.ValidationError{
			Field:   "BatchSize",
			Value:   s.BatchSize,
			Message: "batch size must be between 1 and the Hub batch limit",
		}
	}
	switch s.Preemption {
	case "", push.Hub, push.External:
	default:
		return &errors.ValidationError{
			Field:   "Preemption",
			Value:   s.Preemption,
			Message: "preemption must be hub or external",
		}
	}
	return nil
}

// Query returns the Hub fetch controls.
func (s *Options) Query() hub.Query {
	return hub.Query{FullSync: s.FullSync, Filter: s.Filter, OrderBy: s.OrderBy}
}

// ReconcilerOptions converts sync options to reconciler options.
func (s *Options) ReconcilerOptions() []reconciler.Option {
	var opts []reconciler.Option
	if s.Preemption != "" {
		opts = append(opts, reconciler.WithPreemption(s.Preemption))
	}
	return opts
}

// Includes reports whether def is selected.
func (s *Options) Includes(def *entity.Definition) bool {
	if len(s.Entities) == 0 {
		return true
	}
	return slices.ContainsFunc(s.Entities, def.Named)
}

// WithFullSync configures a full pull ignoring the last sync time.
func WithFullSync(full bool) Option {
	return func(opts *Options) {
		opts.FullSync = full
	}
}

// WithFilter configures the caller Hub filter.
func WithFilter(filter string) Option {
	return func(opts *Options) {
		opts.Filter = filter
	}
}

// WithOrderBy configures the Hub result ordering.
func WithOrderBy(orderBy string) Option {
	return func(opts *Options) {
		opts.OrderBy = orderBy
	}
}

// WithPreemption configures the side winning every conflict.
func WithPreemption(side push.Side) Option {
	return func(opts *Options) {
		opts.Preemption = side
	}
}

// WithBatchSize configures the Hub batch size.
func WithBatchSize(size int) Option {
	return func(opts *Options) {
		opts.BatchSize = size
	}
}

// WithEntities configures syncing for specific entity types only.
func WithEntities(names ...string) Option {
	return func(opts *Options) {
		opts.Entities = names
	}
}

// WithFailFast configures fail-fast behavior.
func WithFailFast(failFast bool) Option {
	return func(opts *Options) {
		opts.FailFast = failFast
	}
}

// WithTimeout configures the sync timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}
