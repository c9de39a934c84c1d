// Package external holds the contracts of the third-party side of a sync:
// the per entity type client, the post-fetch filter hook, a fetcher and a
// record-at-a-time pusher.
package external

import (
	"context"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/push"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// Client reads and writes records of an External system. entity is the
// normalized External entity name. Implementations may return errors of any
// kind; the pusher isolates them per record.
type Client interface {
	// Fetch returns the records changed since lastSync, or all of them when
	// lastSync is nil.
	Fetch(ctx context.Context, entity string, lastSync *utc.Time) ([]record.Record, error)
	// Create stores a new record and returns its External id.
	Create(ctx context.Context, entity string, payload record.Record) (string, error)
	// Update overwrites the record with the given External id.
	Update(ctx context.Context, entity string, payload record.Record, id string) error
}

// Filterer narrows fetched External records, typically to emulate the Hub
// query filter for records delivered by a webhook.
type Filterer interface {
	Filter(entity string, records []record.Record) []record.Record
}

// FilterFunc adapts a function to Filterer.
type FilterFunc func(entity string, records []record.Record) []record.Record

// Filter implements Filterer.
func (f FilterFunc) Filter(entity string, records []record.Record) []record.Record {
	return f(entity, records)
}

// NopFilter keeps every record.
var NopFilter Filterer = FilterFunc(func(_ string, records []record.Record) []record.Record { return records })

// Fetcher reads External records for one organization.
type Fetcher struct {
	client Client
	filter Filterer
	org    *tenant.Organization
	sink   events.Sink
}

// NewFetcher returns a fetcher. A nil filter keeps every record.
func NewFetcher(client Client, filter Filterer, org *tenant.Organization, sink events.Sink) *Fetcher {
	if filter == nil {
		filter = NopFilter
	}
	if sink == nil {
		sink = events.Nop
	}
	return &Fetcher{client: client, filter: filter, org: org, sink: sink}
}

// Fetch returns the filtered records of the entity type changed since
// lastSync. It returns nothing when External reads are disabled.
func (f *Fetcher) Fetch(ctx context.Context, def *entity.Definition, lastSync *utc.Time) ([]record.Record, error) {
	if !def.Capabilities.CanReadExternal() {
		return nil, nil
	}

	name := def.ExternalName()
	start := time.Now()
	f.sink.Emit(ctx, events.Event{
		Stage:        events.FetchStart,
		Organization: f.org.ID,
		Entity:       name,
		Side:         string(push.External),
	})

	records, err := f.client.Fetch(ctx, name, lastSync)
	if err != nil {
		return nil, err
	}
	records = f.filter.Filter(name, records)

	f.sink.Emit(ctx, events.Event{
		Stage:        events.FetchDone,
		Organization: f.org.ID,
		Entity:       name,
		Side:         string(push.External),
		Count:        len(records),
		Duration:     time.Since(start),
	})
	return records, nil
}
