package hubsync

import (
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/constants"
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/sync"
)

// options holds the configuration for a Client.
type options struct {
	store   correlation.Store
	history correlation.History
	sink    events.Sink
	clock   func() utc.Time

	// concurrency bounds the organizations synced in parallel by SyncAll
	concurrency int

	// syncTimeout bounds each organization cycle
	syncTimeout time.Duration

	// auto sync
	autoSyncEnabled  bool
	autoSyncInterval time.Duration

	// syncOptions apply to every cycle before the per-call options
	syncOptions []sync.Option

	tenants []Tenant
}

// Option is a function that configures a Client.
type Option func(*options)

// defaults returns the default options.
func defaults() *options {
	return &options{
		concurrency:      constants.MaxConcurrentOrganizations,
		syncTimeout:      constants.SyncTimeout,
		autoSyncEnabled:  false,
		autoSyncInterval: constants.DefaultSyncInterval,
	}
}

// apply applies the given options.
func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithStore configures the correlation store. When the store also
// implements correlation.History it records synchronization runs too.
func WithStore(store correlation.Store) Option {
	return func(o *options) {
		o.store = store
		if h, ok := store.(correlation.History); ok && o.history == nil {
			o.history = h
		}
	}
}

// WithHistory configures where synchronization runs are recorded.
func WithHistory(history correlation.History) Option {
	return func(o *options) {
		o.history = history
	}
}

// WithEventSink configures an additional progress event sink.
func WithEventSink(sink events.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithClock overrides the time source stamping pushes.
func WithClock(now func() utc.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithConcurrency configures how many organizations SyncAll runs at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithAutoSync configures whether scheduled sync cycles start with the client.
func WithAutoSync(enabled bool) Option {
	return func(o *options) {
		o.autoSyncEnabled = enabled
	}
}

// WithAutoSyncInterval configures the time between scheduled cycles.
func WithAutoSyncInterval(interval time.Duration) Option {
	return func(o *options) {
		o.autoSyncInterval = interval
	}
}

// WithSyncTimeout bounds each organization cycle. Zero disables the bound.
func WithSyncTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.syncTimeout = timeout
	}
}

// WithSyncOptions configures options applied to every sync cycle.
func WithSyncOptions(opts ...sync.Option) Option {
	return func(o *options) {
		o.syncOptions = append(o.syncOptions, opts...)
	}
}
