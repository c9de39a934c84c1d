// Package push holds the values exchanged between the reconciler and the two
// pushers: records queued for a side, and the per-record outcome of pushing
// them.
package push

import (
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/record"
)

// Side identifies one of the two synchronized systems.
type Side string

// Sides.
const (
	Hub      Side = "hub"
	External Side = "external"
)

// Pending is a record mapped to the target side's shape together with the
// correlation that tracks it.
type Pending struct {
	Record      record.Record
	Correlation *correlation.Correlation
}

// Link pairs a Hub id with the External id created for it. Links are sent
// back to the Hub so it learns the External identity without a re-fetch.
type Link struct {
	HubID      string
	ExternalID string
}

// Operation is the kind of write attempted for one record.
type Operation string

// Operations.
const (
	Create   Operation = "create"
	Update   Operation = "update"
	Backlink Operation = "backlink"
	Skip     Operation = "skip"
)

// Outcome is the result of pushing one record.
type Outcome struct {
	Operation     Operation
	CorrelationID string
	HubID         string
	ExternalID    string
	// Status is the per-operation HTTP status for Hub batch results.
	Status int
	// Err is set when the record failed. It never aborts the push.
	Err error
}

// OK reports whether the record was written.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Operation != Skip
}

// Report aggregates the outcomes of one push call.
type Report struct {
	Side     Side
	Entity   string
	Batches  int
	Outcomes []Outcome
	// Links lists the back-correlations queued by an External push.
	Links []Link
}

// NewReport returns an empty report.
func NewReport(side Side, entity string) *Report {
	return &Report{Side: side, Entity: entity}
}

// Add records an outcome.
func (r *Report) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Succeeded counts written records.
func (r *Report) Succeeded() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed counts records that failed.
func (r *Report) Failed() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Skipped counts records left alone.
func (r *Report) Skipped() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.Operation == Skip {
			n++
		}
	}
	return n
}

// Errors returns the per-record errors in push order.
func (r *Report) Errors() []error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
