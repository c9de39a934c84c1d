package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/push"
	"github.com/agentstation/hubsync/pkg/reconciler"
)

// Result represents the complete result of a sync cycle.
type Result struct {
	Organization      string
	SynchronizationID string
	Status            correlation.Status
	LastSync          *utc.Time // Lower bound of the incremental fetch (nil on a full pull)

	StartedAt  time.Time
	FinishedAt time.Time

	EntityResults []*EntityResult // Results per entity type, in sync order
	Errors        []error         // Entity failures
}

// EntityResult represents the sync of one entity type.
type EntityResult struct {
	Entity string

	HubFetched      int
	ExternalFetched int

	Consolidation  *reconciler.Result
	HubReport      *push.Report
	ExternalReport *push.Report

	Duration time.Duration
	Err      error
}

// HasChanges returns true if any record was written on either side.
func (sr *Result) HasChanges() bool {
	for _, er := range sr.EntityResults {
		if er.HasChanges() {
			return true
		}
	}
	return false
}

// Failed returns the number of records that failed to push.
func (sr *Result) Failed() int {
	n := 0
	for _, er := range sr.EntityResults {
		n += er.HubReport.Failed() + er.ExternalReport.Failed()
	}
	return n
}

// HasChanges returns true if the entity result wrote anything.
func (er *EntityResult) HasChanges() bool {
	return er.HubReport.Succeeded() > 0 || er.ExternalReport.Succeeded() > 0
}

// Summary returns a human-readable summary of the sync result.
func (sr *Result) Summary() string {
	var hub, external, failed int
	for _, er := range sr.EntityResults {
		hub += er.HubReport.Succeeded()
		external += er.ExternalReport.Succeeded()
		failed += er.HubReport.Failed() + er.ExternalReport.Failed()
	}

	summary := fmt.Sprintf("%s: %d pushed to hub, %d pushed to external", sr.Status, hub, external)
	var parts []string
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d records failed", failed))
	}
	if len(sr.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("%d entity types failed", len(sr.Errors)))
	}
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	return summary
}

// Summary returns a human-readable summary of the entity result.
func (er *EntityResult) Summary() string {
	if er.Err != nil {
		return fmt.Sprintf("%s: failed: %v", er.Entity, er.Err)
	}
	if !er.HasChanges() && er.HubReport.Failed() == 0 && er.ExternalReport.Failed() == 0 {
		return fmt.Sprintf("%s: No changes", er.Entity)
	}
	return fmt.Sprintf("%s: %d pushed to hub, %d pushed to external, %d failed",
		er.Entity, er.HubReport.Succeeded(), er.ExternalReport.Succeeded(),
		er.HubReport.Failed()+er.ExternalReport.Failed())
}

// status derives the cycle status from the entity outcomes.
func status(results []*EntityResult) correlation.Status {
	failed := 0
	for _, er := range results {
		if er.Err != nil {
			failed++
		}
	}
	switch {
	case failed == 0:
		return correlation.StatusSuccess
	case failed < len(results):
		return correlation.StatusPartial
	default:
		return correlation.StatusError
	}
}
