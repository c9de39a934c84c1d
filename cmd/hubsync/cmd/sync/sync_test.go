package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync"
	"github.com/agentstation/hubsync/cmd/application"
	"github.com/agentstation/hubsync/internal/hubsynctest"
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/push"
	pkgsync "github.com/agentstation/hubsync/pkg/sync"
)

func TestBuildSyncOptions(t *testing.T) {
	opts := pkgsync.Defaults().Apply(BuildSyncOptions(&Flags{
		Full:      true,
		Entities:  []string{"contacts", "invoice"},
		Preempt:   "hub",
		BatchSize: 50,
		Filter:    "status eq 'open'",
		OrderBy:   "name",
		FailFast:  true,
		Timeout:   time.Minute,
	})...)

	assert.True(t, opts.FullSync)
	assert.Equal(t, []string{"contacts", "invoice"}, opts.Entities)
	assert.Equal(t, push.Hub, opts.Preemption)
	assert.Equal(t, 50, opts.BatchSize)
	assert.Equal(t, "status eq 'open'", opts.Filter)
	assert.Equal(t, "name", opts.OrderBy)
	assert.True(t, opts.FailFast)
	assert.Equal(t, time.Minute, opts.Timeout)
	assert.NoError(t, opts.Validate())
}

func TestBuildSyncOptionsKeepsDefaults(t *testing.T) {
	assert.Empty(t, BuildSyncOptions(&Flags{}))
}

func TestSyncCommandNamedOrganizations(t *testing.T) {
	var seen []*pkgsync.Options
	client := &hubsynctest.Client{
		SyncFunc: func(_ context.Context, org string, opts *pkgsync.Options) (*pkgsync.Result, error) {
			seen = append(seen, opts)
			return &pkgsync.Result{
				Organization: org,
				Status:       correlation.StatusSuccess,
				EntityResults: []*pkgsync.EntityResult{
					{Entity: "contacts", HubFetched: 2, ExternalFetched: 1},
				},
			}, nil
		},
	}
	app := &application.Mock{
		ClientFunc: func() (hubsync.Client, error) { return client, nil },
		Format:     "json",
	}

	var out bytes.Buffer
	cmd := NewCommand(app)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"org-1", "org-2", "--full"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"sync org-1", "sync org-2"}, client.Calls())
	require.Len(t, seen, 2)
	assert.True(t, seen[0].FullSync)

	var reports []report
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "org-2", reports[1].Organization)
	assert.Equal(t, "success", reports[0].Status)
	require.Len(t, reports[0].Entities, 1)
	assert.Equal(t, 2, reports[0].Entities[0].HubFetched)
}

func TestSyncCommandAllOrganizations(t *testing.T) {
	client := &hubsynctest.Client{
		SyncAllFunc: func(context.Context, *pkgsync.Options) ([]*pkgsync.Result, error) {
			return []*pkgsync.Result{
				{Organization: "org-1", Status: correlation.StatusSuccess},
				nil,
			}, errors.NewSyncError("org-2", "", errors.ErrLocked)
		},
	}
	app := &application.Mock{
		ClientFunc: func() (hubsync.Client, error) { return client, nil },
		Format:     "table",
	}

	var out bytes.Buffer
	cmd := NewCommand(app)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	err := cmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrLocked)
	assert.Equal(t, []string{"sync-all"}, client.Calls())
}

func TestSyncCommandEntityFailureReported(t *testing.T) {
	client := &hubsynctest.Client{
		SyncFunc: func(_ context.Context, org string, _ *pkgsync.Options) (*pkgsync.Result, error) {
			cause := errors.New("locked period")
			return &pkgsync.Result{
				Organization:  org,
				Status:        correlation.StatusError,
				EntityResults: []*pkgsync.EntityResult{{Entity: "invoices", Err: cause}},
				Errors:        []error{cause},
			}, errors.NewSyncError(org, "invoices", cause)
		},
	}
	app := &application.Mock{
		ClientFunc: func() (hubsync.Client, error) { return client, nil },
		Format:     "yaml",
	}

	var out bytes.Buffer
	err := ExecuteSync(t.Context(), app, &Flags{}, []string{"org-1"}, &out)

	require.Error(t, err)
	assert.Contains(t, out.String(), "error: locked period")
	assert.Contains(t, out.String(), "status: error")
}

func TestSyncCommandClientError(t *testing.T) {
	err := ExecuteSync(t.Context(), &application.Mock{}, &Flags{}, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSyncRejectsUnknownFormatBeforeSyncing(t *testing.T) {
	client := &hubsynctest.Client{}
	app := &application.Mock{
		ClientFunc: func() (hubsync.Client, error) { return client, nil },
		Format:     "xml",
	}

	err := ExecuteSync(t.Context(), app, &Flags{}, []string{"org-1"}, &bytes.Buffer{})

	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Empty(t, client.Calls())
}
