package hubsync

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/logging"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/sync"
)

// Compile-time interface check to ensure proper implementation.
var _ Syncer = (*client)(nil)

// Syncer runs sync cycles.
type Syncer interface {
	// Sync runs one cycle for an organization, waiting for a running cycle
	// of the same organization to finish first
	Sync(ctx context.Context, organization string, opts ...sync.Option) (*sync.Result, error)

	// SyncAll runs one cycle for every organization in parallel
	SyncAll(ctx context.Context, opts ...sync.Option) ([]*sync.Result, error)

	// Ingest consolidates Hub records delivered by a webhook
	Ingest(ctx context.Context, organization, entity string, records []record.Record, opts ...sync.Option) (*sync.EntityResult, error)
}

// Sync runs one cycle for an organization.
func (c *client) Sync(ctx context.Context, organization string, opts ...sync.Option) (*sync.Result, error) {
	// Step 1: Resolve the registration
	r, err := c.registration(organization)
	if err != nil {
		return nil, err
	}

	// Step 2: Wait for the organization lock
	if err := r.acquire(ctx); err != nil {
		c.hooks.triggerSyncResult(organization, nil, err)
		return nil, err
	}
	defer r.release()

	// Step 3: Run the cycle
	return c.run(ctx, r, opts)
}

// SyncAll runs one cycle for every organization, at most the configured
// concurrency at a time. An organization already running a cycle is skipped
// with an ErrLocked error.
//
// Results are aligned with Organizations(); the entry of an organization
// whose cycle could not start is nil. The returned error joins every
// organization failure.
func (c *client) SyncAll(ctx context.Context, opts ...sync.Option) ([]*sync.Result, error) {
	orgs := c.Organizations()
	results := make([]*sync.Result, len(orgs))
	errs := make([]error, len(orgs))

	var g errgroup.Group
	g.SetLimit(c.options.concurrency)
	for i, org := range orgs {
		r, err := c.registration(org.ID)
		if err != nil {
			errs[i] = err
			continue
		}
		if !r.tryAcquire() {
			errs[i] = r.locked(errors.ErrLocked)
			logging.FromContext(ctx).Warn().Str("organization", org.ID).Msg("Skipping organization, a cycle is already running")
			continue
		}
		g.Go(func() error {
			defer r.release()
			if ctx.Err() != nil {
				errs[i] = r.locked(ctx.Err())
				return nil
			}
			results[i], errs[i] = c.run(ctx, r, opts)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// Ingest consolidates Hub records of one entity type delivered by a webhook.
func (c *client) Ingest(ctx context.Context, organization, entity string, records []record.Record, opts ...sync.Option) (*sync.EntityResult, error) {
	r, err := c.registration(organization)
	if err != nil {
		return nil, err
	}

	selector := sync.Defaults().Apply(sync.WithEntities(entity))
	for _, def := range r.tenant.Definitions {
		if !selector.Includes(def) {
			continue
		}
		if err := r.acquire(ctx); err != nil {
			return nil, err
		}
		defer r.release()
		ctx = logging.WithOrganization(ctx, organization)
		return r.orchestrator.Ingest(ctx, def, records, append(c.options.syncOptions, opts...)...)
	}
	return nil, errors.NewNotFoundError("entity", entity)
}

// run executes one cycle with the organization lock held.
func (c *client) run(ctx context.Context, r *registration, opts []sync.Option) (*sync.Result, error) {
	all := append(append([]sync.Option{sync.WithTimeout(c.options.syncTimeout)}, c.options.syncOptions...), opts...)

	result, err := r.orchestrator.Sync(ctx, r.tenant.Definitions, all...)
	c.hooks.triggerSyncResult(r.tenant.Organization.ID, result, err)
	if err != nil {
		return result, err
	}

	logging.FromContext(ctx).Info().
		Str("organization", r.tenant.Organization.ID).
		Str("status", string(result.Status)).
		Msg(result.Summary())
	return result, nil
}
