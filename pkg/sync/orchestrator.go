package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/external"
	"github.com/agentstation/hubsync/pkg/hub"
	"github.com/agentstation/hubsync/pkg/logging"
	"github.com/agentstation/hubsync/pkg/reconciler"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// Config wires an Orchestrator to one organization's collaborators.
type Config struct {
	Organization *tenant.Organization
	Hub          hub.Client
	External     external.Client
	// Filter narrows fetched External records. Optional.
	Filter external.Filterer
	Store  correlation.Store
	// History records cycles and bounds incremental fetches. Optional: without
	// it every Sync is a full pull.
	History correlation.History
	// Sink receives progress events. Optional.
	Sink events.Sink
	// Clock stamps pushes. Optional.
	Clock func() utc.Time
}

// Orchestrator runs sync cycles for one organization. Callers must not run
// two cycles of the same organization concurrently.
type Orchestrator struct {
	cfg Config
}

// New returns an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Organization.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.Hub == nil:
		return nil, errors.NewValidationError("hub", nil, "hub client is required")
	case cfg.External == nil:
		return nil, errors.NewValidationError("external", nil, "external client is required")
	case cfg.Store == nil:
		return nil, errors.NewValidationError("store", nil, "correlation store is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = events.Nop
	}
	if cfg.Clock == nil {
		cfg.Clock = utc.Now
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Organization returns the organization the orchestrator syncs.
func (o *Orchestrator) Organization() *tenant.Organization {
	return o.cfg.Organization
}

// Sync runs one cycle over the selected entity types. The start time of the
// last successful cycle bounds the incremental fetches, and this cycle is
// recorded in the history when one is configured. A cycle limited to some
// entity types is recorded as partial so it never moves that bound.
//
// A failing entity type does not stop the others unless FailFast is set.
// The returned error is non-nil only when no entity type succeeded or the
// cycle could not start.
func (o *Orchestrator) Sync(ctx context.Context, defs []*entity.Definition, opts ...Option) (*Result, error) {
	// Step 1: Parse and validate options
	options := Defaults().Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}
	org := o.cfg.Organization

	// Step 2: Setup context with timeout
	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {}
	}
	defer cancel()

	// Step 3: Resolve the incremental bound
	lastSync, err := o.lastSync(ctx, options)
	if err != nil {
		return nil, err
	}

	// Step 4: Record the cycle start
	result := &Result{
		Organization: org.ID,
		LastSync:     lastSync,
		StartedAt:    time.Now(),
	}
	var run *correlation.Synchronization
	if o.cfg.History != nil {
		if run, err = o.cfg.History.Start(ctx, org.ID); err != nil {
			return nil, err
		}
		result.SynchronizationID = run.ID
		ctx = logging.WithSynchronization(ctx, run.ID)
	}
	ctx = logging.WithOrganization(ctx, org.ID)
	o.cfg.Sink.Emit(ctx, events.Event{Stage: events.SyncStart, Organization: org.ID})

	// Step 5: Sync every selected entity type in order
	var skipped []string
	for _, def := range defs {
		if !options.Includes(def) {
			skipped = append(skipped, def.Name())
			continue
		}
		er, err := o.SyncEntity(ctx, def, lastSync, opts...)
		result.EntityResults = append(result.EntityResults, er)
		if err != nil {
			result.Errors = append(result.Errors, err)
			if options.FailFast || ctx.Err() != nil {
				break
			}
		}
	}

	// Step 6: Record the outcome, even when the context is done
	result.FinishedAt = time.Now()
	result.Status = status(result.EntityResults)
	if run != nil {
		recorded, message := historyOutcome(result, skipped)
		if err := o.cfg.History.Finish(context.WithoutCancel(ctx), run, recorded, message); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("Failed to record synchronization")
		}
	}
	o.cfg.Sink.Emit(ctx, events.Event{
		Stage:        events.SyncDone,
		Organization: org.ID,
		Count:        len(result.EntityResults),
		Reason:       string(result.Status),
		Duration:     result.FinishedAt.Sub(result.StartedAt),
	})

	if result.Status == correlation.StatusError {
		return result, errors.NewSyncError(org.ID, "", result.Errors[0])
	}
	return result, nil
}

// SyncEntity runs one entity type: before hook, Hub fetch, External fetch,
// consolidation, Hub push, External push (with back-links), after hook.
// A nil lastSync fetches everything.
//
// The returned EntityResult is never nil and holds whatever completed before
// a failure.
func (o *Orchestrator) SyncEntity(ctx context.Context, def *entity.Definition, lastSync *utc.Time, opts ...Option) (*EntityResult, error) {
	options := Defaults().Apply(opts...)
	er := &EntityResult{Entity: def.Name()}
	start := time.Now()

	err := o.syncEntity(logging.WithEntity(ctx, def.Name()), def, lastSync, options, er)
	er.Duration = time.Since(start)
	if err != nil {
		er.Err = errors.NewSyncError(o.cfg.Organization.ID, def.Name(), err)
		o.cfg.Sink.Emit(ctx, events.Event{
			Stage:        events.EntityFailed,
			Organization: o.cfg.Organization.ID,
			Entity:       def.Name(),
			Duration:     er.Duration,
			Err:          err,
		})
		return er, er.Err
	}
	o.cfg.Sink.Emit(ctx, events.Event{
		Stage:        events.EntityDone,
		Organization: o.cfg.Organization.ID,
		Entity:       def.Name(),
		Count:        er.HubReport.Succeeded() + er.ExternalReport.Succeeded(),
		Duration:     er.Duration,
	})
	return er, nil
}

func (o *Orchestrator) syncEntity(ctx context.Context, def *entity.Definition, lastSync *utc.Time, options *Options, er *EntityResult) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := options.Validate(); err != nil {
		return err
	}
	hooks := def.ResolvedHooks()
	o.cfg.Sink.Emit(ctx, events.Event{Stage: events.EntityStart, Organization: o.cfg.Organization.ID, Entity: def.Name()})

	// Step 1: Before hook
	if err := hooks.BeforeSync(ctx, lastSync); err != nil {
		return fmt.Errorf("before sync: %w", err)
	}

	// Step 2: Fetch both sides
	hubRecords, err := hub.NewFetcher(o.cfg.Hub, o.cfg.Organization, o.cfg.Sink).Fetch(ctx, def, lastSync, options.Query())
	if err != nil {
		return err
	}
	er.HubFetched = len(hubRecords)

	var externalSince *utc.Time
	if !options.FullSync {
		externalSince = lastSync
	}
	externalRecords, err := external.NewFetcher(o.cfg.External, o.cfg.Filter, o.cfg.Organization, o.cfg.Sink).Fetch(ctx, def, externalSince)
	if err != nil {
		return err
	}
	er.ExternalFetched = len(externalRecords)

	// Step 3: Consolidate and push
	if err := o.consolidateAndPush(ctx, def, hubRecords, externalRecords, options, er); err != nil {
		return err
	}

	// Step 4: After hook
	if err := hooks.AfterSync(ctx, lastSync); err != nil {
		return fmt.Errorf("after sync: %w", err)
	}
	return nil
}

// Ingest consolidates Hub records delivered by a webhook instead of a
// fetch. The entity type's Hub filter hook drops records a fetch would not
// have returned; the rest are pushed to External.
func (o *Orchestrator) Ingest(ctx context.Context, def *entity.Definition, records []record.Record, opts ...Option) (*EntityResult, error) {
	options := Defaults().Apply(opts...)
	er := &EntityResult{Entity: def.Name()}
	start := time.Now()
	defer func() { er.Duration = time.Since(start) }()

	if err := def.Validate(); err != nil {
		return er, err
	}
	if err := options.Validate(); err != nil {
		return er, err
	}
	if !def.Capabilities.CanReadHub() {
		return er, nil
	}

	ctx = logging.WithOperation(logging.WithEntity(ctx, def.Name()), "ingest")
	filtered := def.ResolvedHooks().FilterHub(records)
	er.HubFetched = len(filtered)

	if err := o.consolidateAndPush(ctx, def, filtered, nil, options, er); err != nil {
		er.Err = errors.NewSyncError(o.cfg.Organization.ID, def.Name(), err)
		return er, er.Err
	}
	return er, nil
}

func (o *Orchestrator) consolidateAndPush(ctx context.Context, def *entity.Definition, hubRecords, externalRecords []record.Record, options *Options, er *EntityResult) error {
	rec, err := reconciler.New(o.cfg.Organization, o.cfg.Store,
		append(options.ReconcilerOptions(), reconciler.WithEventSink(o.cfg.Sink))...)
	if err != nil {
		return err
	}
	consolidation, err := rec.Consolidate(ctx, def, hubRecords, externalRecords)
	if err != nil {
		return err
	}
	er.Consolidation = consolidation

	hubPusher := hub.NewPusher(o.cfg.Hub, o.cfg.Organization, o.cfg.Store, o.cfg.Sink,
		hub.WithBatchSize(options.BatchSize), hub.WithClock(o.cfg.Clock))
	if er.HubReport, err = hubPusher.Push(ctx, def, consolidation.ToHub); err != nil {
		return err
	}

	externalPusher := external.NewPusher(o.cfg.External, o.cfg.Organization, o.cfg.Store, o.cfg.Sink, hubPusher,
		external.WithClock(o.cfg.Clock))
	if er.ExternalReport, err = externalPusher.Push(ctx, def, consolidation.ToExternal); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) lastSync(ctx context.Context, options *Options) (*utc.Time, error) {
	if options.FullSync || o.cfg.History == nil {
		return nil, nil
	}
	last, err := o.cfg.History.LastSuccess(ctx, o.cfg.Organization.ID)
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	started := last.StartedAt
	return &started, nil
}

// historyOutcome is the status and message recorded for a cycle. A cycle
// that skipped entity types is recorded as partial: its start time must not
// become the incremental bound of the types it never fetched.
func historyOutcome(result *Result, skipped []string) (correlation.Status, string) {
	message := failureMessage(result.Errors)
	if result.Status != correlation.StatusSuccess || len(skipped) == 0 {
		return result.Status, message
	}
	return correlation.StatusPartial, correlation.Truncate("skipped: " + strings.Join(skipped, ", "))
}

func failureMessage(errs []error) string {
	if len(errs) == 0 {
		return ""
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return correlation.Truncate(strings.Join(msgs, "; "))
}
