// Package hubsync keeps entity records consistent between a central Hub and
// the External system of each registered organization.
//
// A Client holds one registration per organization: its Hub and External
// clients and the entity types to synchronize. Cycles run on demand or on a
// schedule, and organizations sync in parallel while each organization runs
// at most one cycle at a time.
//
// Example usage:
//
//	client, err := hubsync.New(
//	    hubsync.WithStore(store),
//	    hubsync.WithTenant(hubsync.Tenant{
//	        Organization: org,
//	        Hub:          hubClient,
//	        External:     externalClient,
//	        Definitions:  defs,
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.AutoSyncOff()
//
//	// Register event hooks
//	client.OnSyncCompleted(func(result *sync.Result) {
//	    log.Printf("%s: %s", result.Organization, result.Summary())
//	})
//
//	// Manually trigger one cycle
//	result, err := client.Sync(ctx, org.ID, sync.WithEntities("contacts"))
package hubsync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/external"
	"github.com/agentstation/hubsync/pkg/hub"
	"github.com/agentstation/hubsync/pkg/logging"
	"github.com/agentstation/hubsync/pkg/sync"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// Client synchronizes the registered organizations.
type Client interface {

	// Syncer runs sync cycles
	Syncer

	// AutoSyncer provides access to scheduled cycles
	AutoSyncer

	// Hooks provides access to event callback registration
	Hooks

	// Organizations lists the registered organizations in registration order
	Organizations() []*tenant.Organization
}

// Tenant registers one organization.
type Tenant struct {
	Organization *tenant.Organization
	Hub          hub.Client
	External     external.Client
	// Filter narrows fetched External records. Optional.
	Filter      external.Filterer
	Definitions []*entity.Definition
}

// WithTenant registers an organization.
func WithTenant(t Tenant) Option {
	return func(o *options) {
		o.tenants = append(o.tenants, t)
	}
}

// registration is the runtime state of one organization.
type registration struct {
	tenant       Tenant
	orchestrator *sync.Orchestrator
	// lock admits one cycle at a time
	lock chan struct{}
}

// client is the internal implementation of the Client interface.
type client struct {

	// options are the configured options for the client
	options *options

	// registrations by organization id
	mu            gosync.RWMutex
	registrations map[string]*registration
	order         []string

	// sink receives events from every orchestrator
	sink events.Sink

	// auto sync state
	updateTicker *time.Ticker       // ticker triggering scheduled cycles
	stopCh       chan struct{}      // stop channel to stop scheduled cycles
	updateCancel context.CancelFunc // cancel function for the scheduling goroutine
	hooks        *hooks             // event hooks for sync outcomes
}

// New creates a new Client instance with the given options.
func New(opts ...Option) (Client, error) {
	c := &client{
		options:       defaults().apply(opts...),
		registrations: make(map[string]*registration),
		stopCh:        make(chan struct{}),
		hooks:         newHooks(),
	}

	if c.options.concurrency <= 0 {
		return nil, &errors.ValidationError{
			Field:   "concurrency",
			Value:   c.options.concurrency,
			Message: "concurrency must be positive",
		}
	}

	// without a configured store correlations live in memory
	if c.options.store == nil {
		logging.Warn().Msg("No correlation store configured, keeping correlations in memory")
		memory := correlation.NewMemory()
		c.options.store = memory
		if c.options.history == nil {
			c.options.history = memory
		}
	}
	c.sink = events.Multi(events.LogSink{}, c.options.sink, c.hooks)

	for _, t := range c.options.tenants {
		if err := c.register(t); err != nil {
			return nil, err
		}
	}

	// start scheduled cycles if enabled
	if c.options.autoSyncEnabled {
		if err := c.AutoSyncOn(); err != nil {
			return nil, errors.WrapResource("start", "auto-sync", "", err)
		}
	}

	return c, nil
}

// register validates a tenant and builds its orchestrator.
func (c *client) register(t Tenant) error {
	if err := t.Organization.Validate(); err != nil {
		return err
	}
	for _, def := range t.Definitions {
		if err := def.Validate(); err != nil {
			return errors.WrapResource("register", "organization", t.Organization.ID, err)
		}
	}

	orchestrator, err := sync.New(sync.Config{
		Organization: t.Organization,
		Hub:          t.Hub,
		External:     t.External,
		Filter:       t.Filter,
		Store:        c.options.store,
		History:      c.options.history,
		Sink:         c.sink,
		Clock:        c.options.clock,
	})
	if err != nil {
		return errors.WrapResource("register", "organization", t.Organization.ID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.registrations[t.Organization.ID]; exists {
		return &errors.ValidationError{
			Field:   "organization",
			Value:   t.Organization.ID,
			Message: "organization registered twice",
		}
	}
	c.registrations[t.Organization.ID] = &registration{
		tenant:       t,
		orchestrator: orchestrator,
		lock:         make(chan struct{}, 1),
	}
	c.order = append(c.order, t.Organization.ID)
	return nil
}

// Organizations lists the registered organizations in registration order.
func (c *client) Organizations() []*tenant.Organization {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*tenant.Organization, len(c.order))
	for i, id := range c.order {
		out[i] = c.registrations[id].tenant.Organization
	}
	return out
}

func (c *client) registration(organization string) (*registration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.registrations[organization]
	if !ok {
		return nil, errors.NewNotFoundError("organization", organization)
	}
	return r, nil
}

// acquire takes the organization lock, waiting until ctx is done.
func (r *registration) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return r.locked(err)
	}
	select {
	case r.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return r.locked(ctx.Err())
	}
}

// tryAcquire takes the organization lock if it is free.
func (r *registration) tryAcquire() bool {
	select {
	case r.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *registration) release() {
	<-r.lock
}

func (r *registration) locked(cause error) error {
	return errors.NewSyncError(r.tenant.Organization.ID, "", errors.Join(errors.ErrLocked, cause))
}
