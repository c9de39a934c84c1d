// Package reconciler consolidates the records fetched from the Hub and from
// an External system: it matches them through their correlations, resolves
// conflicts, drops records a side already has, and partitions the rest into
// one push queue per side.
package reconciler

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/push"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/references"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// Reconciler is the main interface for consolidating both sides of an
// entity type.
type Reconciler interface {
	// Consolidate decides, for one entity type, which records go to which
	// side. Correlations are created and updated along the way.
	Consolidate(ctx context.Context, def *entity.Definition, hub, external []record.Record) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	org      *tenant.Organization
	store    correlation.Store
	resolver *references.Resolver
	strategy Strategy
	sink     events.Sink
}

// New creates a Reconciler for an organization.
func New(org *tenant.Organization, store correlation.Store, opts ...Option) (Reconciler, error) {
	if err := org.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.NewValidationError("store", nil, "correlation store is required")
	}
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{
		org:      org,
		store:    store,
		resolver: references.NewResolver(org, store),
		strategy: options.strategy,
		sink:     options.sink,
	}, nil
}

// run holds the state of one consolidation.
type run struct {
	*reconciler
	def    *entity.Definition
	hooks  entity.Hooks
	mapper entity.Mapper
	refs   []references.Field
	key    correlation.Key
	result *Result
}

// Consolidate implements Reconciler.
func (r *reconciler) Consolidate(ctx context.Context, def *entity.Definition, hub, external []record.Record) (*Result, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	rn := &run{
		reconciler: r,
		def:        def,
		hooks:      def.ResolvedHooks(),
		mapper:     def.MapperOrDefault(),
		refs:       def.ReferenceFields(),
		key:        def.Key(r.org.ID),
		result:     newResult(def.Name(), r.strategy, len(hub), len(external)),
	}

	var err error
	if def.Singleton {
		err = rn.singleton(ctx, hub, external)
	} else {
		err = rn.records(ctx, hub, external)
	}
	if err != nil {
		return nil, err
	}

	rn.result.finish()
	for _, side := range []push.Side{push.Hub, push.External} {
		count := len(rn.result.ToHub)
		if side == push.External {
			count = len(rn.result.ToExternal)
		}
		r.sink.Emit(ctx, events.Event{
			Stage:        events.Consolidated,
			Organization: r.org.ID,
			Entity:       def.Name(),
			Side:         string(side),
			Count:        count,
		})
	}
	return rn.result, nil
}

// records consolidates a regular entity type in two passes: Hub records
// first, then the External records no Hub record claimed.
func (rn *run) records(ctx context.Context, hub, external []record.Record) error {
	index := make(map[string]int, len(external))
	for i, rec := range external {
		if id := rn.hooks.ExternalID(rec); id != "" {
			if _, dup := index[id]; !dup {
				index[id] = i
			}
		}
	}
	consumed := make(map[int]bool)
	matched := make(map[int]*correlation.Correlation)

	// Step 1: Hub records
	for _, rec := range hub {
		if err := ctx.Err(); err != nil {
			return err
		}

		unfolded, ok, err := rn.resolver.Unfold(ctx, rec, rn.refs)
		if err != nil {
			return err
		}
		if !ok {
			rn.discard(ctx, push.Hub, hubIdentity(rec), events.ReasonUnresolved)
			continue
		}
		hubID := unfolded.HubID()
		externalID := unfolded.String("id")

		if externalID == "" {
			if err := rn.newOnHub(ctx, unfolded, hubID); err != nil {
				return err
			}
			continue
		}

		c, err := rn.correlate(ctx, hubID, externalID)
		if err != nil {
			return err
		}
		if err := rn.rename(ctx, c, rn.hooks.HubName(unfolded)); err != nil {
			return err
		}

		switch {
		case c.ExternalInactive:
			rn.discard(ctx, push.Hub, hubID, events.ReasonInactive)
			continue
		case !c.ToExternal:
			rn.discard(ctx, push.Hub, hubID, events.ReasonDisabled)
			continue
		case hubStale(c, unfolded):
			rn.discard(ctx, push.Hub, hubID, events.ReasonNotModified)
			continue
		}

		if i, found := index[externalID]; found && !consumed[i] {
			matched[i] = c
			if rn.conflict(ctx, hubID, unfolded, external[i]) == push.External {
				rn.discard(ctx, push.Hub, hubID, events.ReasonConflictLost)
				continue
			}
			consumed[i] = true
		}
		rn.toExternal(ctx, unfolded, hubID, c)
	}

	// Step 2: External records not consumed by a Hub win
	for i, rec := range external {
		if consumed[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		externalID := rn.hooks.ExternalID(rec)
		if externalID == "" {
			rn.discard(ctx, push.External, "", events.ReasonUnresolved)
			continue
		}

		c := matched[i]
		if c == nil {
			var err error
			if c, err = rn.store.FindOrCreate(ctx, rn.key.WithExternalID(externalID)); err != nil {
				return err
			}
		}
		if err := rn.external(ctx, rec, externalID, c, false); err != nil {
			return err
		}
	}
	return nil
}

// newOnHub routes a Hub record External does not know yet straight to the
// External push.
func (rn *run) newOnHub(ctx context.Context, rec record.Record, hubID string) error {
	var (
		c   *correlation.Correlation
		err error
	)
	if hubID != "" {
		c, err = rn.store.FindOrCreate(ctx, rn.key.WithHubID(hubID))
	} else {
		c, err = rn.store.Create(ctx, rn.key)
	}
	if err != nil {
		return err
	}
	if err := rn.rename(ctx, c, rn.hooks.HubName(rec)); err != nil {
		return err
	}
	if !c.ToExternal {
		rn.discard(ctx, push.Hub, hubID, events.ReasonDisabled)
		return nil
	}
	rn.toExternal(ctx, rec, hubID, c)
	return nil
}

// correlate finds the correlation of a Hub record known to External, by Hub
// id first and External id second, and back-fills whichever id it lacks.
func (rn *run) correlate(ctx context.Context, hubID, externalID string) (*correlation.Correlation, error) {
	var (
		c   *correlation.Correlation
		err error
	)
	if hubID != "" {
		c, err = rn.store.Find(ctx, rn.key.WithHubID(hubID))
		if err != nil && !errors.IsNotFound(err) {
			return nil, err
		}
	}
	if c == nil {
		c, err = rn.store.Find(ctx, rn.key.WithExternalID(externalID))
		if err != nil && !errors.IsNotFound(err) {
			return nil, err
		}
	}
	if c == nil {
		key := rn.key
		key.HubID, key.ExternalID = hubID, externalID
		return rn.store.Create(ctx, key)
	}

	var fields correlation.Fields
	if c.HubID == "" && hubID != "" {
		fields.HubID = &hubID
	}
	if c.ExternalID == "" {
		fields.ExternalID = &externalID
	}
	if fields.IsZero() {
		return c, nil
	}
	return c, rn.store.Update(ctx, c, fields)
}

// external handles one External record bound for the Hub. A winning
// singleton record is always pushed: the direction flags, the inactive
// state and staleness are not consulted.
func (rn *run) external(ctx context.Context, rec record.Record, externalID string, c *correlation.Correlation, singleton bool) error {
	if singleton {
		if err := rn.rename(ctx, c, rn.hooks.ExternalName(rec)); err != nil {
			return err
		}
		return rn.toHub(ctx, rec, externalID, c)
	}
	if !c.ToHub {
		rn.discard(ctx, push.External, externalID, events.ReasonDisabled)
		return nil
	}

	inactive := rn.hooks.ExternalInactive(rec)
	var fields correlation.Fields
	if c.ExternalInactive != inactive {
		fields.ExternalInactive = &inactive
	}
	if name := rn.hooks.ExternalName(rec); name != "" && name != c.Name {
		fields.Name = &name
	}
	if !fields.IsZero() {
		if err := rn.store.Update(ctx, c, fields); err != nil {
			return err
		}
	}

	if inactive {
		rn.discard(ctx, push.External, externalID, events.ReasonInactive)
		return nil
	}
	if externalStale(c, rn.hooks, rec) {
		rn.discard(ctx, push.External, externalID, events.ReasonNotModified)
		return nil
	}
	return rn.toHub(ctx, rec, externalID, c)
}

// toHub maps an External record and queues it for the Hub.
func (rn *run) toHub(ctx context.Context, rec record.Record, externalID string, c *correlation.Correlation) error {
	mapped, err := rn.mapper.ToHub(ctx, rec)
	if err != nil {
		rn.discardErr(ctx, push.External, externalID, err)
		return nil
	}
	rn.result.ToHub = append(rn.result.ToHub, push.Pending{
		Record:      rn.resolver.Fold(mapped, externalID, rn.refs),
		Correlation: c,
	})
	return nil
}

// toExternal maps a Hub record and queues it. The Hub id rides along in the
// record so the External pusher can report it back.
func (rn *run) toExternal(ctx context.Context, rec record.Record, hubID string, c *correlation.Correlation) {
	clean, _ := rec.WithoutHubID()
	mapped, err := rn.mapper.ToExternal(ctx, clean)
	if err != nil {
		rn.discardErr(ctx, push.Hub, hubID, err)
		return
	}
	rn.result.ToExternal = append(rn.result.ToExternal, push.Pending{
		Record:      mapped.WithHubID(hubID),
		Correlation: c,
	})
}

// conflict picks the winning side for a record present on both sides.
func (rn *run) conflict(ctx context.Context, hubID string, hub, external record.Record) push.Side {
	var c Candidate
	c.HubUpdatedAt, c.HubKnown = hub.UpdatedAt()
	c.ExternalUpdatedAt, c.ExternalKnown = rn.hooks.ExternalUpdatedAt(external)

	winner := rn.strategy.Winner(c)
	stats := &rn.result.Metadata.Stats
	stats.Conflicts++
	if winner == push.Hub {
		stats.HubWins++
	} else {
		stats.ExternalWins++
	}
	rn.sink.Emit(ctx, events.Event{
		Stage:        events.Conflict,
		Organization: rn.org.ID,
		Entity:       rn.def.Name(),
		Side:         string(winner),
		ID:           hubID,
		Reason:       string(rn.strategy.Type()),
	})
	return winner
}

func (rn *run) rename(ctx context.Context, c *correlation.Correlation, name string) error {
	if name == "" || name == c.Name {
		return nil
	}
	return rn.store.Update(ctx, c, correlation.Fields{Name: &name})
}

func (rn *run) discard(ctx context.Context, side push.Side, id, reason string) {
	rn.result.Metadata.Stats.Discarded[reason]++
	rn.sink.Emit(ctx, events.Event{
		Stage:        events.Discard,
		Organization: rn.org.ID,
		Entity:       rn.def.Name(),
		Side:         string(side),
		ID:           id,
		Reason:       reason,
	})
}

func (rn *run) discardErr(ctx context.Context, side push.Side, id string, err error) {
	rn.result.Metadata.Stats.Discarded[events.ReasonMapFailed]++
	rn.sink.Emit(ctx, events.Event{
		Stage:        events.Discard,
		Organization: rn.org.ID,
		Entity:       rn.def.Name(),
		Side:         string(side),
		ID:           id,
		Reason:       events.ReasonMapFailed,
		Err:          err,
	})
}

// hubStale reports whether External already received this version of a Hub
// record: the last push to External happened after the record's update.
func hubStale(c *correlation.Correlation, rec record.Record) bool {
	updated, ok := rec.UpdatedAt()
	return stale(c.LastPushToExternal, updated, ok)
}

// externalStale reports whether the Hub already received this version of an
// External record.
func externalStale(c *correlation.Correlation, hooks entity.Hooks, rec record.Record) bool {
	updated, ok := hooks.ExternalUpdatedAt(rec)
	return stale(c.LastPushToHub, updated, ok)
}

// stale is false when the record carries no readable update time, so such
// records are always pushed.
func stale(lastPush *utc.Time, updated utc.Time, ok bool) bool {
	return lastPush != nil && ok && lastPush.Time.After(updated.Time)
}

// hubIdentity returns the Hub id of a record not yet unfolded.
func hubIdentity(rec record.Record) string {
	return record.FindHub(record.ParseIdentities(rec["id"]))
}
