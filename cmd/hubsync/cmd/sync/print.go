package sync

import (
	"io"
	"time"

	"github.com/agentstation/hubsync/internal/cmd/output"
	"github.com/agentstation/hubsync/internal/cmd/table"
	pkgsync "github.com/agentstation/hubsync/pkg/sync"
)

// report is the serialized form of a cycle.
type report struct {
	Organization      string         `json:"organization" yaml:"organization"`
	SynchronizationID string         `json:"synchronization_id" yaml:"synchronization_id"`
	Status            string         `json:"status" yaml:"status"`
	Summary           string         `json:"summary" yaml:"summary"`
	StartedAt         time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt        time.Time      `json:"finished_at" yaml:"finished_at"`
	Entities          []entityReport `json:"entities" yaml:"entities"`
}

type entityReport struct {
	Entity          string `json:"entity" yaml:"entity"`
	HubFetched      int    `json:"hub_fetched" yaml:"hub_fetched"`
	ExternalFetched int    `json:"external_fetched" yaml:"external_fetched"`
	PushedToHub     int    `json:"pushed_to_hub" yaml:"pushed_to_hub"`
	PushedToExt     int    `json:"pushed_to_external" yaml:"pushed_to_external"`
	Failed          int    `json:"failed" yaml:"failed"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

// printResults writes results in the requested format.
func printResults(w io.Writer, format output.Format, results []*pkgsync.Result) error {
	return output.Print(w, format, output.Result{
		Rows:  table.ResultsToTableData(results),
		Value: toReports(results),
		Empty: "No entity types synced.",
	})
}

func toReports(results []*pkgsync.Result) []report {
	reports := make([]report, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		rep := report{
			Organization:      r.Organization,
			SynchronizationID: r.SynchronizationID,
			Status:            string(r.Status),
			Summary:           r.Summary(),
			StartedAt:         r.StartedAt,
			FinishedAt:        r.FinishedAt,
		}
		for _, er := range r.EntityResults {
			e := entityReport{
				Entity:          er.Entity,
				HubFetched:      er.HubFetched,
				ExternalFetched: er.ExternalFetched,
				PushedToHub:     er.HubReport.Succeeded(),
				PushedToExt:     er.ExternalReport.Succeeded(),
				Failed:          er.HubReport.Failed() + er.ExternalReport.Failed(),
			}
			if er.Err != nil {
				e.Error = er.Err.Error()
			}
			rep.Entities = append(rep.Entities, e)
		}
		reports = append(reports, rep)
	}
	return reports
}
