// Package table turns sync results and correlations into table rows.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/sync"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

var title = cases.Title(language.English)

// Headers title-cases snake_case column keys ("hub_id" becomes "Hub Id").
func Headers(keys ...string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = title.String(strings.ReplaceAll(k, "_", " "))
	}
	return out
}

// CorrelationsToTableData lists correlations, most recently updated last.
func CorrelationsToTableData(rows []*correlation.Correlation) Data {
	data := Data{
		Headers: Headers("entity", "name", "hub_id", "external_id", "to_hub", "to_external", "last_push", "message"),
	}
	for _, c := range rows {
		data.Rows = append(data.Rows, []string{
			c.HubEntity,
			c.Name,
			c.HubID,
			c.ExternalID,
			flag(c.ToHub),
			flag(c.ToExternal),
			lastPush(c),
			c.Message,
		})
	}
	return data
}

// ResultsToTableData summarizes sync results, one row per entity type.
func ResultsToTableData(results []*sync.Result) Data {
	data := Data{
		Headers:         Headers("organization", "entity", "fetched", "to_hub", "to_external", "failed", "duration", "status"),
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignLeft},
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, er := range r.EntityResults {
			status := "ok"
			if er.Err != nil {
				status = er.Err.Error()
			}
			data.Rows = append(data.Rows, []string{
				r.Organization,
				er.Entity,
				fmt.Sprintf("%d/%d", er.HubFetched, er.ExternalFetched),
				strconv.Itoa(er.HubReport.Succeeded()),
				strconv.Itoa(er.ExternalReport.Succeeded()),
				strconv.Itoa(er.HubReport.Failed() + er.ExternalReport.Failed()),
				er.Duration.Round(time.Millisecond).String(),
				status,
			})
		}
	}
	return data
}

// SynchronizationsToTableData lists recorded cycles.
func SynchronizationsToTableData(runs []*correlation.Synchronization) Data {
	data := Data{Headers: Headers("id", "status", "started_at", "finished_at", "message")}
	for _, s := range runs {
		data.Rows = append(data.Rows, []string{
			s.ID,
			string(s.Status),
			timestamp(&s.StartedAt),
			timestamp(s.FinishedAt),
			s.Message,
		})
	}
	return data
}

func flag(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func lastPush(c *correlation.Correlation) string {
	last := c.LastPushToHub
	if c.LastPushToExternal != nil && (last == nil || c.LastPushToExternal.Time.After(last.Time)) {
		last = c.LastPushToExternal
	}
	return timestamp(last)
}

func timestamp(t *utc.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Time.UTC().Format(time.RFC3339)
}
