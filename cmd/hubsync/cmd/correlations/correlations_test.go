package correlations

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/cmd/application"
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
)

func seededApp(t *testing.T, format string) *application.Mock {
	t.Helper()
	ctx := context.Background()
	store := correlation.NewMemory()

	contacts := correlation.Key{OrganizationID: "org-1", HubEntity: "contacts", ExternalEntity: "customer"}
	invoices := correlation.Key{OrganizationID: "org-1", HubEntity: "invoices", ExternalEntity: "invoice"}

	_, err := store.FindOrCreate(ctx, contacts.WithHubID("h-1"))
	require.NoError(t, err)
	failed, err := store.FindOrCreate(ctx, contacts.WithHubID("h-2"))
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, failed, correlation.Failed("external rejected email")))
	_, err = store.FindOrCreate(ctx, invoices.WithExternalID("e-9"))
	require.NoError(t, err)

	run, err := store.Start(ctx, "org-1")
	require.NoError(t, err)
	require.NoError(t, store.Finish(ctx, run, correlation.StatusPartial, "1 failed"))

	return &application.Mock{
		StoreFunc: func() (application.Store, error) { return store, nil },
		Format:    format,
	}
}

type row struct {
	HubEntity string `json:"hub_entity"`
	HubID     string `json:"hub_id"`
	Message   string `json:"message"`
}

func TestCorrelationsJSON(t *testing.T) {
	app := seededApp(t, "json")

	tests := []struct {
		name  string
		flags Flags
		want  int
	}{
		{"all", Flags{Limit: 100}, 3},
		{"by entity", Flags{HubEntity: "contacts", Limit: 100}, 2},
		{"failed", Flags{Failed: true, Limit: 100}, 1},
		{"limited", Flags{Limit: 1}, 1},
		{"unknown entity", Flags{HubEntity: "nope", Limit: 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, ExecuteCorrelations(t.Context(), app, &tt.flags, "org-1", &buf))

			var rows []row
			require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestCorrelationsFailedMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExecuteCorrelations(t.Context(), seededApp(t, "json"), &Flags{Failed: true, Limit: 10}, "org-1", &buf))

	var rows []row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "h-2", rows[0].HubID)
	assert.Equal(t, "external rejected email", rows[0].Message)
}

func TestCorrelationsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExecuteCorrelations(t.Context(), seededApp(t, "table"), &Flags{Limit: 100}, "org-1", &buf))

	out := strings.ToLower(buf.String())
	assert.Contains(t, out, "hub id")
	assert.Contains(t, out, "h-1")
	assert.Contains(t, out, "e-9")
}

func TestCorrelationsHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExecuteCorrelations(t.Context(), seededApp(t, "yaml"), &Flags{History: true, Limit: 5}, "org-1", &buf))

	assert.Contains(t, buf.String(), "status: partial")
	assert.Contains(t, buf.String(), "1 failed")
}

func TestCorrelationsEmptyOrganization(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExecuteCorrelations(t.Context(), seededApp(t, "json"), &Flags{Limit: 10}, "org-2", &buf))
	assert.JSONEq(t, "[]", buf.String())
}

func TestCorrelationsErrors(t *testing.T) {
	err := ExecuteCorrelations(t.Context(), seededApp(t, "json"), &Flags{Limit: 0}, "org-1", &bytes.Buffer{})
	assert.True(t, errors.IsValidationError(err))

	err = ExecuteCorrelations(t.Context(), &application.Mock{}, &Flags{Limit: 10}, "org-1", &bytes.Buffer{})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCommandRequiresOrganization(t *testing.T) {
	cmd := NewCommand(seededApp(t, "json"))
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
