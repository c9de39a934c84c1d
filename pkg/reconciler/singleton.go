package reconciler

import (
	"context"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/push"
	"github.com/agentstation/hubsync/pkg/record"
)

// singleton consolidates an entity type holding at most one record per
// organization. Both sides share a single correlation; the side holding data
// wins, and when both do the strategy decides. Only the first record of
// each side is considered, and the winner is pushed regardless of the
// correlation's direction flags or the External inactive state.
func (rn *run) singleton(ctx context.Context, hub, external []record.Record) error {
	if len(hub) == 0 && len(external) == 0 {
		return nil
	}

	var hubRec record.Record
	if len(hub) > 0 {
		unfolded, ok, err := rn.resolver.Unfold(ctx, hub[0], rn.refs)
		if err != nil {
			return err
		}
		if ok {
			hubRec = unfolded
		} else {
			rn.discard(ctx, push.Hub, hubIdentity(hub[0]), events.ReasonUnresolved)
		}
	}
	var extRec record.Record
	if len(external) > 0 {
		extRec = external[0]
	}
	if hubRec == nil && extRec == nil {
		return nil
	}

	c, err := rn.store.FindOrCreate(ctx, rn.key)
	if err != nil {
		return err
	}

	var winner push.Side
	switch {
	case extRec == nil:
		winner = push.Hub
	case hubRec == nil:
		winner = push.External
	default:
		winner = rn.conflict(ctx, hubRec.HubID(), hubRec, extRec)
	}

	// record every identity either side revealed
	var fields correlation.Fields
	hubID := ""
	if hubRec != nil {
		hubID = hubRec.HubID()
		if hubID != "" && hubID != c.HubID {
			fields.HubID = &hubID
		}
	}
	externalID := ""
	if extRec != nil {
		externalID = rn.hooks.ExternalID(extRec)
	} else if hubRec != nil {
		externalID = hubRec.String("id")
	}
	if externalID != "" && externalID != c.ExternalID {
		fields.ExternalID = &externalID
	}
	if !fields.IsZero() {
		if err := rn.store.Update(ctx, c, fields); err != nil {
			return err
		}
	}

	if winner == push.Hub {
		if extRec != nil {
			rn.discard(ctx, push.External, externalID, events.ReasonConflictLost)
		}
		if err := rn.rename(ctx, c, rn.hooks.HubName(hubRec)); err != nil {
			return err
		}
		rn.toExternal(ctx, hubRec, hubID, c)
		return nil
	}

	if hubRec != nil {
		rn.discard(ctx, push.Hub, hubID, events.ReasonConflictLost)
	}
	return rn.external(ctx, extRec, externalID, c, true)
}
