package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/pkg/entity"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/tenant"
)

var testOrg = &tenant.Organization{ID: "org-1", UID: "cld-1", Provider: "acme", Realm: "r1"}

func contactDefinition() *entity.Definition {
	return &entity.Definition{HubEntity: "Contact", ExternalEntity: "Customer"}
}

// hubServer serves canned bodies by request uri and counts requests.
type hubServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies map[string]string
	hits   []string
}

func newHubServer(t *testing.T, bodies map[string]string) *hubServer {
	t.Helper()
	s := &hubServer{bodies: bodies}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits = append(s.hits, r.URL.RequestURI())
		body, ok := s.bodies[r.URL.RequestURI()]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *hubServer) client(t *testing.T) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(Config{URL: s.URL, OrganizationUID: "cld-1", Key: "k", Secret: "s", RateLimit: 1000, RateBurst: 100})
	require.NoError(t, err)
	return c
}

func TestFetchFollowsPagination(t *testing.T) {
	server := newHubServer(t, map[string]string{})
	server.bodies["/api/v2/cld-1/contacts"] = `{"contacts":[{"name":"a"},{"name":"b"}],"pagination":{"next":"` + server.URL + `/api/v2/cld-1/contacts?page=2"}}`
	server.bodies["/api/v2/cld-1/contacts?page=2"] = `{"contacts":[{"name":"c"}],"pagination":{"next":"` + server.URL + `/api/v2/cld-1/contacts?page=3"}}`
	server.bodies["/api/v2/cld-1/contacts?page=3"] = `{"contacts":[{"name":"d"}],"pagination":{"next":null}}`

	rec := &events.Recorder{}
	f := NewFetcher(server.client(t), testOrg, rec)

	records, err := f.Fetch(context.Background(), contactDefinition(), nil, Query{})
	require.NoError(t, err)

	require.Len(t, records, 4)
	for i, name := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, name, records[i].String("name"))
	}
	assert.Equal(t, []string{
		"/api/v2/cld-1/contacts",
		"/api/v2/cld-1/contacts?page=2",
		"/api/v2/cld-1/contacts?page=3",
	}, server.hits)

	assert.Len(t, rec.Stage(events.FetchStart), 1)
	assert.Len(t, rec.Stage(events.FetchPage), 3)
	done := rec.Stage(events.FetchDone)
	require.Len(t, done, 1)
	assert.Equal(t, 4, done[0].Count)
}

func TestFetchIncrementalFilter(t *testing.T) {
	client := &fakeClient{pages: map[string]string{}}
	lastSync := utc.New(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	q := Query{Filter: "status eq 'active'", OrderBy: "name"}
	client.pages["/contacts?"+q.Values(&lastSync).Encode()] = `{"contacts":[]}`

	f := NewFetcher(client, testOrg, nil)
	records, err := f.Fetch(context.Background(), contactDefinition(), &lastSync, q)
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, client.gets, 1)

	values := q.Values(&lastSync)
	assert.Equal(t, "updated_at gt '2024-03-01T10:00:00Z' and status eq 'active'", values.Get("$filter"))
	assert.Equal(t, "name", values.Get("$orderby"))
}

func TestQueryValues(t *testing.T) {
	lastSync := utc.New(time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600)))

	tests := []struct {
		name     string
		query    Query
		lastSync *utc.Time
		filter   string
		incr     bool
	}{
		{name: "first sync", query: Query{}, lastSync: nil, filter: ""},
		{name: "first sync with caller filter", query: Query{Filter: "a eq 1"}, lastSync: nil, filter: "a eq 1"},
		{name: "incremental", query: Query{}, lastSync: &lastSync, filter: "updated_at gt '2024-03-01T09:00:00Z'", incr: true},
		{name: "full sync ignores last sync", query: Query{FullSync: true, Filter: "a eq 1"}, lastSync: &lastSync, filter: "a eq 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.filter, tt.query.Values(tt.lastSync).Get("$filter"))
			assert.Equal(t, tt.incr, tt.query.Incremental(tt.lastSync))
		})
	}
}

func TestFetchFatalPages(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "whitespace body", body: "  \n"},
		{name: "not json", body: "<html>"},
		{name: "missing collection key", body: `{"customers":[]}`},
		{name: "null collection", body: `{"contacts":null}`},
		{name: "not a record list", body: `{"contacts":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{pages: map[string]string{"/contacts": tt.body}}
			f := NewFetcher(client, testOrg, nil)

			records, err := f.Fetch(context.Background(), contactDefinition(), nil, Query{})
			assert.Nil(t, records)
			require.Error(t, err)
			assert.True(t, errors.IsFatalFetch(err))
			assert.ErrorIs(t, err, errors.ErrMalformedResponse)
		})
	}
}

func TestFetchFailedRequest(t *testing.T) {
	server := newHubServer(t, map[string]string{})
	f := NewFetcher(server.client(t), testOrg, nil)

	_, err := f.Fetch(context.Background(), contactDefinition(), nil, Query{})
	require.Error(t, err)
	assert.True(t, errors.IsFatalFetch(err))

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestFetchRepeatedCursor(t *testing.T) {
	client := &fakeClient{pages: map[string]string{
		"/contacts":        `{"contacts":[{"name":"a"}],"pagination":{"next":"https://hub.test/api/v2/cld-1/contacts?page=2"}}`,
		"/contacts?page=2": `{"contacts":[{"name":"b"}],"pagination":{"next":"https://hub.test/api/v2/cld-1/contacts?page=2"}}`,
	}}
	f := NewFetcher(client, testOrg, nil)

	_, err := f.Fetch(context.Background(), contactDefinition(), nil, Query{})
	require.Error(t, err)
	assert.True(t, errors.IsFatalFetch(err))
	assert.Equal(t, []string{"/contacts", "/contacts?page=2"}, client.gets)
}

func TestFetchSingleton(t *testing.T) {
	client := &fakeClient{pages: map[string]string{
		"/company": `{"company":{"name":"Acme","updated_at":"2024-01-01T00:00:00Z"}}`,
	}}
	f := NewFetcher(client, testOrg, nil)
	def := &entity.Definition{HubEntity: "Company", ExternalEntity: "company", Singleton: true}

	records, err := f.Fetch(context.Background(), def, nil, Query{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].String("name"))
}

func TestFetchReadDisabled(t *testing.T) {
	client := &fakeClient{}
	f := NewFetcher(client, testOrg, nil)
	def := contactDefinition()
	def.Capabilities = entity.ReadOnlyFromExternal()

	records, err := f.Fetch(context.Background(), def, nil, Query{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, client.gets)
}

func TestNextPath(t *testing.T) {
	assert.Equal(t, "/contacts?page=2", nextPath("https://hub.test/api/v2/cld-1/contacts?page=2", "contacts"))
	assert.Equal(t, "/contacts?page=2", nextPath("/contacts?page=2", "contacts"))
	assert.Equal(t, "", nextPath("  ", "contacts"))
	assert.Equal(t, "https://hub.test/other?p=2", nextPath("https://hub.test/other?p=2", "contacts"))
	assert.Equal(t, "/contacts?page=2&from=/contacts/archive",
		nextPath("https://hub.test/api/v2/cld-1/contacts?page=2&from=/contacts/archive", "contacts"))
	assert.Equal(t, "/contacts", nextPath("https://hub.test/api/v2/cld-1/contacts", "contacts"))
}

func TestNewHTTPClientValidation(t *testing.T) {
	_, err := NewHTTPClient(Config{OrganizationUID: "cld-1"})
	assert.True(t, errors.IsValidationError(err))

	_, err = NewHTTPClient(Config{URL: "https://hub.test"})
	assert.True(t, errors.IsValidationError(err))
}
