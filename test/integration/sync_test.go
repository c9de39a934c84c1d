// Package integration runs sync cycles through the CLI application stack
// against HTTP fakes of the Hub and an External system.
package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/cmd/hubsync/app"
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/hub"
)

// fakeHub serves the contacts collection and answers batch calls.
type fakeHub struct {
	*httptest.Server
	mu      sync.Mutex
	page    string
	batches []hub.BatchRequest
}

func newFakeHub(t *testing.T, page string) *fakeHub {
	t.Helper()
	h := &fakeHub{page: page}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v2/cld-1/contacts":
			h.mu.Lock()
			page := h.page
			h.mu.Unlock()
			_, _ = w.Write([]byte(page))
		case r.Method == http.MethodPost && r.URL.Path == "/batch":
			var req hub.BatchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			h.mu.Lock()
			h.batches = append(h.batches, req)
			n := len(h.batches)
			h.mu.Unlock()

			resp := hub.BatchResponse{}
			for i, op := range req.Ops {
				if op.Method == hub.MethodPut {
					resp.Results = append(resp.Results, hub.BatchResult{Status: 200, Body: json.RawMessage(`{}`)})
					continue
				}
				body := fmt.Sprintf(`{"contact":{"id":[{"id":"new-%d-%d","provider":"hub"}]}}`, n, i)
				resp.Results = append(resp.Results, hub.BatchResult{Status: 201, Body: json.RawMessage(body)})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(h.Close)
	return h
}

func (h *fakeHub) Batches() []hub.BatchRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]hub.BatchRequest(nil), h.batches...)
}

// fakeExternal serves a customers collection and records writes.
type fakeExternal struct {
	*httptest.Server
	mu      sync.Mutex
	created []map[string]any
	updated []string
}

func newFakeExternal(t *testing.T, list string) *fakeExternal {
	t.Helper()
	e := &fakeExternal{}
	e.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/customers":
			_, _ = w.Write([]byte(list))
		case r.Method == http.MethodPost && r.URL.Path == "/customers":
			var body map[string]map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			e.mu.Lock()
			e.created = append(e.created, body["customer"])
			id := fmt.Sprintf("ext-%d", len(e.created))
			e.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_, _ = fmt.Fprintf(w, `{"customer":{"id":%q}}`, id)
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/customers/"):
			e.mu.Lock()
			e.updated = append(e.updated, strings.TrimPrefix(r.URL.Path, "/customers/"))
			e.mu.Unlock()
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(e.Close)
	return e
}

func (e *fakeExternal) Created() []map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]map[string]any(nil), e.created...)
}

const entitiesTemplate = `
organizations:
  - id: org-1
    uid: cld-1
    provider: acme
    realm: r1
    external:
      base_url: %s
      auth:
        type: none
      rate_limit: 1000
      rate_burst: 100
entities:
  - hub: Contact
    external: Customer
    endpoint:
      path: /customers
      collection: customers
      item: customer
`

func newApp(t *testing.T, hubURL, externalURL string) *app.App {
	t.Helper()
	dir := t.TempDir()

	entities := filepath.Join(dir, "entities.yaml")
	require.NoError(t, os.WriteFile(entities, []byte(fmt.Sprintf(entitiesTemplate, externalURL)), 0o600))

	logger := zerolog.Nop()
	a, err := app.New("test", "none", "today", "go test",
		app.WithLogger(&logger),
		app.WithConfig(&app.Config{
			EntitiesFile: entities,
			HubURL:       hubURL,
			HubKey:       "key",
			HubSecret:    "secret",
			HubAPIPath:   "/api/v2",
			HubRateLimit: 1000,
			HubRateBurst: 100,
			HubTimeout:   5 * time.Second,
			StoreDriver:  "sqlite",
			StoreDSN:     filepath.Join(dir, "hubsync.db"),
			BatchSize:    50,
			Concurrency:  1,
			SyncTimeout:  time.Minute,
			SyncInterval: time.Hour,
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(t.Context()) })
	return a
}

func TestSyncBothDirectionsOverHTTP(t *testing.T) {
	hubServer := newFakeHub(t, `{"contacts":[{"id":[{"id":"h-1","provider":"hub"}],"name":"Ada","updated_at":"2024-04-01T00:00:00Z"}]}`)
	externalServer := newFakeExternal(t, `{"customers":[{"id":"e-1","name":"Bob","updated_at":"2024-04-01T00:00:00Z"}]}`)
	a := newApp(t, hubServer.URL, externalServer.URL)

	client, err := a.Client()
	require.NoError(t, err)

	result, err := client.Sync(t.Context(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, correlation.StatusSuccess, result.Status)
	require.Len(t, result.EntityResults, 1)
	assert.Equal(t, 1, result.EntityResults[0].HubFetched)
	assert.Equal(t, 1, result.EntityResults[0].ExternalFetched)

	// Bob created on the Hub, then Ada's back-link.
	batches := hubServer.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, hub.MethodPost, batches[0].Ops[0].Method)
	assert.Equal(t, "/api/v2/cld-1/contacts", batches[0].Ops[0].URL)
	assert.Equal(t, hub.MethodPut, batches[1].Ops[0].Method)
	assert.Equal(t, "/api/v2/cld-1/contacts/h-1", batches[1].Ops[0].URL)

	created := externalServer.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "Ada", created[0]["name"])

	store, err := a.Store()
	require.NoError(t, err)
	key := correlation.Key{OrganizationID: "org-1", HubEntity: "contacts", ExternalEntity: "customer"}

	ada, err := store.Find(t.Context(), key.WithHubID("h-1"))
	require.NoError(t, err)
	assert.Equal(t, "ext-1", ada.ExternalID)

	bob, err := store.Find(t.Context(), key.WithExternalID("e-1"))
	require.NoError(t, err)
	assert.Equal(t, "new-1-0", bob.HubID)

	runs, err := store.Recent(t.Context(), "org-1", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, correlation.StatusSuccess, runs[0].Status)
}

func TestSecondCycleIsIncremental(t *testing.T) {
	hubServer := newFakeHub(t, `{"contacts":[]}`)
	externalServer := newFakeExternal(t, `{"customers":[]}`)
	a := newApp(t, hubServer.URL, externalServer.URL)

	client, err := a.Client()
	require.NoError(t, err)

	first, err := client.Sync(t.Context(), "org-1")
	require.NoError(t, err)
	assert.Nil(t, first.LastSync)

	second, err := client.Sync(t.Context(), "org-1")
	require.NoError(t, err)
	require.NotNil(t, second.LastSync)
	assert.Empty(t, hubServer.Batches())
	assert.Empty(t, externalServer.Created())
}
