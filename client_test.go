package hubsync_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync"
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/hub"
	"github.com/agentstation/hubsync/pkg/record"
	"github.com/agentstation/hubsync/pkg/sync"
	"github.com/agentstation/hubsync/pkg/tenant"
)

type fakeHub struct {
	mu    gosync.Mutex
	pages map[string]string
	gets  int
}

func (h *fakeHub) Get(_ context.Context, path string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gets++
	collection, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "?")
	if page, ok := h.pages[collection]; ok {
		return []byte(page), nil
	}
	return []byte(fmt.Sprintf(`{%q:[]}`, collection)), nil
}

func (h *fakeHub) Batch(_ context.Context, req *hub.BatchRequest) ([]byte, error) {
	resp := hub.BatchResponse{}
	for range req.Ops {
		resp.Results = append(resp.Results, hub.BatchResult{Status: 200, Body: json.RawMessage(`{}`)})
	}
	return json.Marshal(resp)
}

type fakeExternal struct {
	mu      gosync.Mutex
	records []record.Record
	created []record.Record
	fail    error
}

func (e *fakeExternal) Fetch(context.Context, string, *utc.Time) ([]record.Record, error) {
	return e.records, nil
}

func (e *fakeExternal) Create(_ context.Context, _ string, payload record.Record) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return "", e.fail
	}
	e.created = append(e.created, payload)
	return fmt.Sprintf("ext-%d", len(e.created)), nil
}

func (e *fakeExternal) Update(context.Context, string, record.Record, string) error {
	return nil
}

func organization(n int) *tenant.Organization {
	return &tenant.Organization{ID: fmt.Sprintf("org-%d", n), UID: fmt.Sprintf("cld-%d", n), Provider: "acme"}
}

func contacts() *entity.Definition {
	return &entity.Definition{HubEntity: "Contact", ExternalEntity: "Customer"}
}

func newTenant(n int, defs ...*entity.Definition) (hubsync.Tenant, *fakeHub, *fakeExternal) {
	h := &fakeHub{pages: map[string]string{}}
	e := &fakeExternal{}
	if len(defs) == 0 {
		defs = []*entity.Definition{contacts()}
	}
	return hubsync.Tenant{Organization: organization(n), Hub: h, External: e, Definitions: defs}, h, e
}

func TestSyncAllRunsEveryOrganization(t *testing.T) {
	t1, h1, _ := newTenant(1)
	t2, h2, _ := newTenant(2)
	client, err := hubsync.New(
		hubsync.WithStore(correlation.NewMemory()),
		hubsync.WithTenant(t1),
		hubsync.WithTenant(t2),
		hubsync.WithConcurrency(1),
	)
	require.NoError(t, err)

	results, err := client.SyncAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "org-1", results[0].Organization)
	assert.Equal(t, "org-2", results[1].Organization)
	for _, result := range results {
		assert.Equal(t, correlation.StatusSuccess, result.Status)
	}
	assert.Equal(t, 1, h1.gets)
	assert.Equal(t, 1, h2.gets)

	orgs := client.Organizations()
	require.Len(t, orgs, 2)
	assert.Equal(t, "org-1", orgs[0].ID)
}

func TestNewRejectsInvalidRegistrations(t *testing.T) {
	t1, _, _ := newTenant(1)
	_, err := hubsync.New(hubsync.WithTenant(t1), hubsync.WithTenant(t1))
	assert.True(t, errors.IsValidationError(err))

	bad, _, _ := newTenant(2, &entity.Definition{HubEntity: "Contact"})
	_, err = hubsync.New(hubsync.WithTenant(bad))
	assert.True(t, errors.IsValidationError(err))

	_, err = hubsync.New(hubsync.WithConcurrency(0))
	assert.True(t, errors.IsValidationError(err))
}

func TestSyncUnknownOrganization(t *testing.T) {
	client, err := hubsync.New()
	require.NoError(t, err)

	_, err = client.Sync(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestOrganizationLock(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	def := contacts()
	def.Hooks = entity.Hooks{BeforeSync: func(context.Context, *utc.Time) error {
		close(entered)
		<-unblock
		return nil
	}}
	t1, _, _ := newTenant(1, def)
	client, err := hubsync.New(hubsync.WithTenant(t1))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := client.Sync(context.Background(), "org-1")
		done <- err
	}()
	<-entered

	// A scheduled pass skips the busy organization.
	results, err := client.SyncAll(context.Background())
	assert.ErrorIs(t, err, errors.ErrLocked)
	assert.Nil(t, results[0])

	// A manual cycle waits until its context gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Sync(ctx, "org-1")
	assert.ErrorIs(t, err, errors.ErrLocked)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(unblock)
	require.NoError(t, <-done)
}

func TestHooks(t *testing.T) {
	t1, h1, e1 := newTenant(1)
	h1.pages["contacts"] = `{"contacts":[{"id":[{"id":"h-1","provider":"hub"}],"name":"Ada"}]}`
	e1.fail = errors.NewAPIError("acme", 422, "name taken")

	recorder := &events.Recorder{}
	client, err := hubsync.New(hubsync.WithTenant(t1), hubsync.WithEventSink(recorder))
	require.NoError(t, err)

	var (
		completed []*sync.Result
		failed    []events.Event
	)
	client.OnSyncCompleted(func(result *sync.Result) { completed = append(completed, result) })
	client.OnRecordFailed(func(e events.Event) { failed = append(failed, e) })

	result, err := client.Sync(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed())
	require.Len(t, completed, 1)
	assert.Same(t, result, completed[0])
	require.Len(t, failed, 1)
	assert.Equal(t, "external", failed[0].Side)
	assert.NotEmpty(t, recorder.Stage(events.SyncDone))
}

func TestSyncFailedHook(t *testing.T) {
	def := contacts()
	def.Hooks = entity.Hooks{BeforeSync: func(context.Context, *utc.Time) error {
		return errors.New("maintenance")
	}}
	t1, _, _ := newTenant(1, def)
	client, err := hubsync.New(hubsync.WithTenant(t1))
	require.NoError(t, err)

	var failedOrgs []string
	client.OnSyncFailed(func(organization string, err error) { failedOrgs = append(failedOrgs, organization) })

	result, err := client.Sync(context.Background(), "org-1")
	require.Error(t, err)
	assert.Equal(t, correlation.StatusError, result.Status)
	assert.Equal(t, []string{"org-1"}, failedOrgs)
}

func TestIngest(t *testing.T) {
	t1, h1, e1 := newTenant(1)
	client, err := hubsync.New(hubsync.WithTenant(t1))
	require.NoError(t, err)

	er, err := client.Ingest(context.Background(), "org-1", "contact", []record.Record{
		{"id": []any{map[string]any{"id": "h-1", "provider": "hub"}}, "name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, er.ExternalReport.Succeeded())
	assert.Len(t, e1.created, 1)
	assert.Zero(t, h1.gets)

	_, err = client.Ingest(context.Background(), "org-1", "invoices", nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestAutoSync(t *testing.T) {
	t1, _, _ := newTenant(1)
	client, err := hubsync.New(hubsync.WithTenant(t1), hubsync.WithAutoSyncInterval(10*time.Millisecond))
	require.NoError(t, err)

	ran := make(chan struct{}, 1)
	client.OnSyncCompleted(func(*sync.Result) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})

	require.NoError(t, client.AutoSyncOn())
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled cycle did not run")
	}
	require.NoError(t, client.AutoSyncOff())
	require.NoError(t, client.AutoSyncOff())
}

func TestAutoSyncRejectsInvalidInterval(t *testing.T) {
	client, err := hubsync.New(hubsync.WithAutoSyncInterval(0))
	require.NoError(t, err)
	assert.True(t, errors.IsValidationError(client.AutoSyncOn()))
}
