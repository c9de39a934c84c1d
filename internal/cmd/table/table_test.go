package table

import (
	"errors"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/push"
	"github.com/agentstation/hubsync/pkg/sync"
)

func TestHeaders(t *testing.T) {
	assert.Equal(t, []string{"Hub Id", "External Id", "Status"}, Headers("hub_id", "external_id", "status"))
}

func TestCorrelationsToTableData(t *testing.T) {
	older := utc.New(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	newer := utc.New(time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC))
	data := CorrelationsToTableData([]*correlation.Correlation{
		{HubEntity: "contacts", Name: "Ada", HubID: "h-1", ExternalID: "e-1", ToHub: true, LastPushToHub: &older, LastPushToExternal: &newer},
		{HubEntity: "contacts", Name: "Bob", Message: "name taken"},
	})

	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"contacts", "Ada", "h-1", "e-1", "yes", "no", "2024-05-02T12:00:00Z", ""}, data.Rows[0])
	assert.Equal(t, "-", data.Rows[1][6])
	assert.Equal(t, "name taken", data.Rows[1][7])
}

func TestResultsToTableData(t *testing.T) {
	hubReport := push.NewReport(push.Hub, "contacts")
	hubReport.Add(push.Outcome{Operation: push.Create, Status: 201})
	results := []*sync.Result{
		{
			Organization: "org-1",
			EntityResults: []*sync.EntityResult{
				{Entity: "contacts", HubFetched: 3, ExternalFetched: 2, HubReport: hubReport, Duration: 1500 * time.Microsecond},
				{Entity: "invoices", Err: errors.New("boom")},
			},
		},
		nil,
	}

	data := ResultsToTableData(results)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"org-1", "contacts", "3/2", "1", "0", "0", "2ms", "ok"}, data.Rows[0])
	assert.Equal(t, "boom", data.Rows[1][7])
	assert.Len(t, data.ColumnAlignment, len(data.Headers))
}
