// Package events decouples the sync core from how its progress is reported.
// The core emits structured events at every stage; sinks decide whether they
// become log lines, metrics or test assertions.
package events

import (
	"context"
	"sync"
	"time"
)

// Stage names a point in a sync cycle.
type Stage string

// Stages emitted by the sync core.
const (
	SyncStart     Stage = "sync_start"
	SyncDone      Stage = "sync_done"
	EntityStart   Stage = "entity_start"
	EntityDone    Stage = "entity_done"
	EntityFailed  Stage = "entity_failed"
	FetchStart    Stage = "fetch_start"
	FetchPage     Stage = "fetch_page"
	FetchDone     Stage = "fetch_done"
	Discard       Stage = "discard"
	Conflict      Stage = "conflict"
	Consolidated  Stage = "consolidated"
	PushStart     Stage = "push_start"
	BatchSent     Stage = "batch_sent"
	RecordPushed  Stage = "record_pushed"
	RecordFailed  Stage = "record_failed"
	BacklinkSent  Stage = "backlink_sent"
	BacklinkError Stage = "backlink_failed"
)

// Discard reasons.
const (
	ReasonInactive     = "inactive"
	ReasonDisabled     = "disabled"
	ReasonNotModified  = "not_modified"
	ReasonUnresolved   = "unresolved_reference"
	ReasonConflictLost = "conflict_lost"
	ReasonMapFailed    = "map_failed"
)

// Event is one structured progress report.
type Event struct {
	Stage        Stage
	Organization string
	Entity       string
	// Side is "hub" or "external" when the event concerns one system.
	Side string
	// ID identifies the record or correlation concerned.
	ID       string
	Count    int
	Page     int
	Batch    int
	Reason   string
	Duration time.Duration
	Err      error
}

// Sink receives events. Implementations must be safe for concurrent use
// because organizations sync in parallel.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }

// Nop discards every event.
var Nop Sink = SinkFunc(func(context.Context, Event) {})

// Multi fans events out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	var kept []Sink
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return Nop
	case 1:
		return kept[0]
	}
	return SinkFunc(func(ctx context.Context, e Event) {
		for _, s := range kept {
			s.Emit(ctx, e)
		}
	})
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Stage returns the recorded events of one stage.
func (r *Recorder) Stage(stage Stage) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}
