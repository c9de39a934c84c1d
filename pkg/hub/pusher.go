package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/push"
	"github.com/agentstation/hubsync/pkg/references"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// Pusher writes records to the Hub through its batch endpoint and applies
// each operation's result to the record's correlation.
type Pusher struct {
	client   Client
	org      *tenant.Organization
	store    correlation.Store
	sink     events.Sink
	resolver *references.Resolver
	opts     *Options
}

// NewPusher returns a pusher for an organization.
func NewPusher(client Client, org *tenant.Organization, store correlation.Store, sink events.Sink, opts ...Option) *Pusher {
	if sink == nil {
		sink = events.Nop
	}
	return &Pusher{
		client:   client,
		org:      org,
		store:    store,
		sink:     sink,
		resolver: references.NewResolver(org, nil),
		opts:     Defaults().Apply(opts...),
	}
}

// Push sends pending records to the entity type's own Hub collection.
func (p *Pusher) Push(ctx context.Context, def *entity.Definition, pending []push.Pending) (*push.Report, error) {
	return p.PushTo(ctx, def, def.HubEntity, pending)
}

// PushTo sends pending records to the collection of hubEntity. Records whose
// correlation knows a Hub id are updated, the others created.
//
// A missing or malformed batch answer aborts the remaining batches with a
// PushError. A failed operation only marks its own correlation.
func (p *Pusher) PushTo(ctx context.Context, def *entity.Definition, hubEntity string, pending []push.Pending) (*push.Report, error) {
	collection := entity.Normalize(hubEntity, def.Singleton)
	report := push.NewReport(push.Hub, collection)
	if !def.Capabilities.CanWriteHub() || len(pending) == 0 {
		return report, nil
	}

	p.sink.Emit(ctx, events.Event{
		Stage:        events.PushStart,
		Organization: p.org.ID,
		Entity:       collection,
		Side:         string(push.Hub),
		Count:        len(pending),
	})

	singular := entity.Singularize(hubEntity)
	ops := make([]BatchOperation, len(pending))
	for i, item := range pending {
		payload, _ := item.Record.WithoutHubID()
		ops[i] = NewOperation(p.prefix(), collection, singular, item.Correlation.HubID, payload)
	}

	err := p.send(ctx, collection, ops, report, func(i int, result BatchResult) error {
		return p.apply(ctx, collection, singular, pending[i].Correlation, result, report)
	})
	return report, err
}

func (p *Pusher) apply(ctx context.Context, collection, singular string, c *correlation.Correlation, result BatchResult, report *push.Report) error {
	op := push.Create
	if c.HubID != "" {
		op = push.Update
	}

	if !result.OK() {
		message := result.Message()
		if err := p.store.Update(ctx, c, correlation.Failed(message)); err != nil {
			return err
		}
		recErr := &errors.RecordError{
			Side:       string(push.Hub),
			Entity:     collection,
			ID:         c.ID,
			StatusCode: result.Status,
			Message:    message,
		}
		report.Add(push.Outcome{
			Operation:     op,
			CorrelationID: c.ID,
			HubID:         c.HubID,
			ExternalID:    c.ExternalID,
			Status:        result.Status,
			Err:           recErr,
		})
		p.sink.Emit(ctx, events.Event{
			Stage:        events.RecordFailed,
			Organization: p.org.ID,
			Entity:       collection,
			Side:         string(push.Hub),
			ID:           c.ID,
			Err:          recErr,
		})
		return nil
	}

	fields := correlation.PushedToHub(p.opts.Now())
	if op == push.Create {
		if id := createdID(result.Body, collection, singular); id != "" {
			fields.HubID = &id
		}
	}
	if err := p.store.Update(ctx, c, fields); err != nil {
		return err
	}
	report.Add(push.Outcome{
		Operation:     op,
		CorrelationID: c.ID,
		HubID:         c.HubID,
		ExternalID:    c.ExternalID,
		Status:        result.Status,
	})
	p.sink.Emit(ctx, events.Event{
		Stage:        events.RecordPushed,
		Organization: p.org.ID,
		Entity:       collection,
		Side:         string(push.Hub),
		ID:           c.ID,
	})
	return nil
}

// Backlink tells the Hub which External id was created for each of its
// records, one update per link. Failures are reported but touch no
// correlation: the External side already holds the record.
func (p *Pusher) Backlink(ctx context.Context, def *entity.Definition, links []push.Link) (*push.Report, error) {
	collection := def.Collection()
	report := push.NewReport(push.Hub, collection)

	var (
		ops  []BatchOperation
		sent []push.Link
	)
	for _, link := range links {
		if link.HubID == "" || link.ExternalID == "" {
			report.Add(push.Outcome{Operation: push.Skip, HubID: link.HubID, ExternalID: link.ExternalID})
			continue
		}
		ops = append(ops, NewOperation(p.prefix(), collection, def.Singular(), link.HubID, p.resolver.Backlink(link.ExternalID)))
		sent = append(sent, link)
	}
	if len(ops) == 0 {
		return report, nil
	}

	err := p.send(ctx, collection, ops, report, func(i int, result BatchResult) error {
		link := sent[i]
		outcome := push.Outcome{
			Operation:  push.Backlink,
			HubID:      link.HubID,
			ExternalID: link.ExternalID,
			Status:     result.Status,
		}
		if !result.OK() {
			outcome.Err = &errors.RecordError{
				Side:       string(push.Hub),
				Entity:     collection,
				ID:         link.HubID,
				StatusCode: result.Status,
				Message:    result.Message(),
			}
			p.sink.Emit(ctx, events.Event{
				Stage:        events.BacklinkError,
				Organization: p.org.ID,
				Entity:       collection,
				Side:         string(push.Hub),
				ID:           link.HubID,
				Err:          outcome.Err,
			})
		}
		report.Add(outcome)
		return nil
	})
	if err == nil {
		p.sink.Emit(ctx, events.Event{
			Stage:        events.BacklinkSent,
			Organization: p.org.ID,
			Entity:       collection,
			Side:         string(push.Hub),
			Count:        len(sent),
		})
	}
	return report, err
}

// send splits ops into batches and hands every result to apply in order.
// Each batch's results are applied before the next batch is sent.
func (p *Pusher) send(ctx context.Context, collection string, ops []BatchOperation, report *push.Report, apply func(i int, result BatchResult) error) error {
	size := p.opts.BatchSize
	for start, number := 0, 1; start < len(ops); start, number = start+size, number+1 {
		end := min(start+size, len(ops))
		batch := ops[start:end]

		body, err := p.client.Batch(ctx, &BatchRequest{Sequential: true, Ops: batch})
		report.Batches++
		if err != nil {
			return errors.NewPushError(collection, number, "request failed", err)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return errors.NewPushError(collection, number, "no data received", nil)
		}
		var resp BatchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return errors.NewPushError(collection, number, "undecodable response", nil)
		}
		if len(resp.Results) != len(batch) {
			return errors.NewPushError(collection, number,
				fmt.Sprintf("expected %d results, got %d", len(batch), len(resp.Results)), nil)
		}

		p.sink.Emit(ctx, events.Event{
			Stage:        events.BatchSent,
			Organization: p.org.ID,
			Entity:       collection,
			Side:         string(push.Hub),
			Batch:        number,
			Count:        len(batch),
		})

		for i, result := range resp.Results {
			if err := apply(start+i, result); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pusher) prefix() string {
	return "/" + strings.Trim(p.opts.APIPath, "/") + "/" + p.org.UID
}
