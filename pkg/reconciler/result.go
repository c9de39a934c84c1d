package reconciler

import (
	"time"

	"github.com/agentstation/hubsync/pkg/push"
)

// Result is the outcome of a consolidation: the records to push to each
// side, in input order.
type Result struct {
	ToHub      []push.Pending
	ToExternal []push.Pending

	// Metadata
	Metadata ResultMetadata
}

// ResultMetadata contains metadata about the consolidation.
type ResultMetadata struct {
	Entity    string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Strategy  StrategyType
	Stats     ResultStatistics
}

// ResultStatistics counts what happened to the input records.
type ResultStatistics struct {
	HubRecords      int
	ExternalRecords int
	Conflicts       int
	HubWins         int
	ExternalWins    int
	// Discarded counts dropped records per reason.
	Discarded map[string]int
}

// HasChanges reports whether anything needs pushing.
func (r *Result) HasChanges() bool {
	return len(r.ToHub) > 0 || len(r.ToExternal) > 0
}

// Discarded returns the total number of dropped records.
func (r *Result) Discarded() int {
	n := 0
	for _, count := range r.Metadata.Stats.Discarded {
		n += count
	}
	return n
}

func newResult(entity string, strategy Strategy, hub, external int) *Result {
	return &Result{
		Metadata: ResultMetadata{
			Entity:    entity,
			StartTime: time.Now(),
			Strategy:  strategy.Type(),
			Stats: ResultStatistics{
				HubRecords:      hub,
				ExternalRecords: external,
				Discarded:       make(map[string]int),
			},
		},
	}
}

func (r *Result) finish() {
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}
