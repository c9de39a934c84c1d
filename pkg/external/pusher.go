package external

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/logging"
	"github.com/agentstation/hubsync/pkg/push"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// Backlinker sends newly learned External ids back to the Hub.
type Backlinker interface {
	Backlink(ctx context.Context, def *entity.Definition, links []push.Link) (*push.Report, error)
}

// Option configures a Pusher.
type Option func(*Pusher)

// WithClock overrides the time source stamping successful pushes.
func WithClock(now func() utc.Time) Option {
	return func(p *Pusher) {
		if now != nil {
			p.now = now
		}
	}
}

// Pusher writes records to an External system one at a time and applies each
// outcome to the record's correlation.
type Pusher struct {
	client     Client
	org        *tenant.Organization
	store      correlation.Store
	sink       events.Sink
	backlinker Backlinker
	now        func() utc.Time
}

// NewPusher returns a pusher. backlinker may be nil, in which case links are
// only reported.
func NewPusher(client Client, org *tenant.Organization, store correlation.Store, sink events.Sink, backlinker Backlinker, opts ...Option) *Pusher {
	if sink == nil {
		sink = events.Nop
	}
	p := &Pusher{
		client:     client,
		org:        org,
		store:      store,
		sink:       sink,
		backlinker: backlinker,
		now:        utc.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push sends pending records to the entity type's External name.
func (p *Pusher) Push(ctx context.Context, def *entity.Definition, pending []push.Pending) (*push.Report, error) {
	return p.PushTo(ctx, def, def.ExternalName(), pending)
}

// PushTo creates records whose correlation has no External id and updates
// the others. A failing record is marked on its correlation and the push
// moves on. Hub ids paired with newly created External ids are sent back to
// the Hub once every record was processed.
//
// Only store failures, a cancelled context and a failed back-link batch are
// returned as errors.
func (p *Pusher) PushTo(ctx context.Context, def *entity.Definition, name string, pending []push.Pending) (*push.Report, error) {
	report := push.NewReport(push.External, name)
	if !def.Capabilities.CanWriteExternal() || len(pending) == 0 {
		return report, nil
	}

	p.sink.Emit(ctx, events.Event{
		Stage:        events.PushStart,
		Organization: p.org.ID,
		Entity:       name,
		Side:         string(push.External),
		Count:        len(pending),
	})

	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		c := item.Correlation
		payload, hubID := item.Record.WithoutHubID()
		if hubID == "" {
			hubID = c.HubID
		}

		if c.ExternalID == "" {
			id, err := p.client.Create(ctx, name, payload)
			if err == nil && id == "" {
				err = errors.New("create returned no id")
			}
			if err != nil {
				if ferr := p.fail(ctx, report, name, push.Create, c, err); ferr != nil {
					return report, ferr
				}
				continue
			}

			fields := correlation.PushedToExternal(p.now())
			fields.ExternalID = &id
			if hubID != "" && c.HubID == "" {
				fields.HubID = &hubID
			}
			if err := p.store.Update(ctx, c, fields); err != nil {
				return report, err
			}
			if hubID != "" {
				report.Links = append(report.Links, push.Link{HubID: hubID, ExternalID: id})
			}
			p.succeed(ctx, report, name, push.Create, c)
			continue
		}

		if !def.Capabilities.CanUpdateExternal() {
			report.Add(push.Outcome{Operation: push.Skip, CorrelationID: c.ID, HubID: c.HubID, ExternalID: c.ExternalID})
			continue
		}

		if err := p.client.Update(ctx, name, payload, c.ExternalID); err != nil {
			if ferr := p.fail(ctx, report, name, push.Update, c, err); ferr != nil {
				return report, ferr
			}
			continue
		}

		// singletons never go through create, so the Hub learns the External
		// id on the first successful update
		if def.Singleton && !c.HasPushedToExternal() && hubID != "" {
			report.Links = append(report.Links, push.Link{HubID: hubID, ExternalID: c.ExternalID})
		}
		if err := p.store.Update(ctx, c, correlation.PushedToExternal(p.now())); err != nil {
			return report, err
		}
		p.succeed(ctx, report, name, push.Update, c)
	}

	if len(report.Links) == 0 || p.backlinker == nil {
		return report, nil
	}
	linked, err := p.backlinker.Backlink(ctx, def, report.Links)
	if err != nil {
		return report, err
	}
	for _, lerr := range linked.Errors() {
		logging.FromContext(ctx).Warn().
			Str("entity", name).
			Err(lerr).
			Msg("Hub rejected external id")
	}
	return report, nil
}

func (p *Pusher) succeed(ctx context.Context, report *push.Report, name string, op push.Operation, c *correlation.Correlation) {
	report.Add(push.Outcome{
		Operation:     op,
		CorrelationID: c.ID,
		HubID:         c.HubID,
		ExternalID:    c.ExternalID,
	})
	p.sink.Emit(ctx, events.Event{
		Stage:        events.RecordPushed,
		Organization: p.org.ID,
		Entity:       name,
		Side:         string(push.External),
		ID:           c.ID,
	})
}

func (p *Pusher) fail(ctx context.Context, report *push.Report, name string, op push.Operation, c *correlation.Correlation, cause error) error {
	recErr := &errors.RecordError{
		Side:    string(push.External),
		Entity:  name,
		ID:      c.ID,
		Message: cause.Error(),
		Err:     cause,
	}
	var apiErr *errors.APIError
	if errors.As(cause, &apiErr) {
		recErr.StatusCode = apiErr.StatusCode
		recErr.Message = apiErr.Message
	}

	if err := p.store.Update(ctx, c, correlation.Failed(recErr.Message)); err != nil {
		return err
	}
	report.Add(push.Outcome{
		Operation:     op,
		CorrelationID: c.ID,
		HubID:         c.HubID,
		ExternalID:    c.ExternalID,
		Status:        recErr.StatusCode,
		Err:           recErr,
	})
	p.sink.Emit(ctx, events.Event{
		Stage:        events.RecordFailed,
		Organization: p.org.ID,
		Entity:       name,
		Side:         string(push.External),
		ID:           c.ID,
		Err:          recErr,
	})
	return nil
}
