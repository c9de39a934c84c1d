package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/constants"
	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/tenant"
)

// Fetcher pulls records of one entity type from the Hub, following the
// pagination cursor until the last page.
type Fetcher struct {
	client Client
	org    *tenant.Organization
	sink   events.Sink
}

// NewFetcher returns a fetcher for an organization.
func NewFetcher(client Client, org *tenant.Organization, sink events.Sink) *Fetcher {
	if sink == nil {
		sink = events.Nop
	}
	return &Fetcher{client: client, org: org, sink: sink}
}

type page struct {
	records []record.Record
	next    string
}

// Fetch returns every record of the entity type changed since lastSync, or
// all records on a full pull, in page order. A page that is empty, not
// decodable or missing the collection key fails the whole fetch with a
// FetchError.
func (f *Fetcher) Fetch(ctx context.Context, def *entity.Definition, lastSync *utc.Time, q Query) ([]record.Record, error) {
	if !def.Capabilities.CanReadHub() {
		return nil, nil
	}

	collection := def.Collection()
	start := time.Now()
	f.sink.Emit(ctx, events.Event{
		Stage:        events.FetchStart,
		Organization: f.org.ID,
		Entity:       collection,
		Side:         "hub",
		Reason:       fetchMode(q, lastSync),
	})

	path := "/" + collection
	if values := q.Values(lastSync); len(values) > 0 {
		path += "?" + values.Encode()
	}

	var (
		all  []record.Record
		seen = map[string]bool{}
	)
	for number := 0; path != ""; number++ {
		if seen[path] {
			return nil, errors.NewFetchError(collection, number, "pagination cursor repeats "+path, nil)
		}
		seen[path] = true

		p, err := f.fetchPage(ctx, collection, path, number)
		if err != nil {
			return nil, err
		}
		all = append(all, p.records...)
		f.sink.Emit(ctx, events.Event{
			Stage:        events.FetchPage,
			Organization: f.org.ID,
			Entity:       collection,
			Side:         "hub",
			Page:         number,
			Count:        len(p.records),
		})
		path = p.next
	}

	f.sink.Emit(ctx, events.Event{
		Stage:        events.FetchDone,
		Organization: f.org.ID,
		Entity:       collection,
		Side:         "hub",
		Count:        len(all),
		Duration:     time.Since(start),
	})
	return all, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, collection, path string, number int) (*page, error) {
	body, err := f.client.Get(ctx, path)
	if err != nil {
		return nil, errors.NewFetchError(collection, number, "request failed", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.NewFetchError(collection, number, "no data received", nil)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.NewFetchError(collection, number, "undecodable response", nil)
	}
	raw, ok := envelope[collection]
	if !ok || string(raw) == "null" {
		return nil, errors.NewFetchError(collection, number, "unrecognized data, missing key "+collection, nil)
	}

	p := &page{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := decodeRecords(dec, &p.records); err != nil {
		return nil, errors.NewFetchError(collection, number, "undecodable "+collection, nil)
	}

	if rawPagination, ok := envelope[constants.PaginationField]; ok {
		var pagination struct {
			Next *string `json:"next"`
		}
		if err := json.Unmarshal(rawPagination, &pagination); err == nil && pagination.Next != nil {
			p.next = nextPath(*pagination.Next, collection)
		}
	}
	return p, nil
}

// decodeRecords accepts a list of records or, for singletons, one record.
func decodeRecords(dec *json.Decoder, out *[]record.Record) error {
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return errors.ErrMalformedResponse
			}
			*out = append(*out, record.Record(m))
		}
	case map[string]any:
		*out = append(*out, record.Record(t))
	default:
		return errors.ErrMalformedResponse
	}
	return nil
}

// nextPath turns the absolute cursor url returned by the Hub into a path
// relative to the organization scope: the url path from "/{collection}" on,
// followed by the cursor's query.
func nextPath(next, collection string) string {
	next = strings.TrimSpace(next)
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return "/" + strings.TrimPrefix(next, "/")
	}
	path := u.EscapedPath()
	if i := strings.LastIndex(path, "/"+collection); i >= 0 {
		if u.RawQuery != "" {
			return path[i:] + "?" + u.RawQuery
		}
		return path[i:]
	}
	if u.IsAbs() {
		return next
	}
	return "/" + strings.TrimPrefix(next, "/")
}

func fetchMode(q Query, lastSync *utc.Time) string {
	if q.Incremental(lastSync) {
		return "incremental"
	}
	return "full"
}
