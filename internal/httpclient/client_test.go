package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubsync/pkg/errors"
)

func TestGetAppliesAuthAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/api/v2/cld-1/contacts", r.URL.Path)
		assert.Equal(t, "updated_at gt '2024'", r.URL.Query().Get("$filter"))
		assert.Equal(t, "hubsync/1.0", r.UserAgent())
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := New(Config{
		System:  "hub",
		BaseURL: server.URL + "/api/v2/cld-1",
		Auth:    BasicAuth{Username: "key", Password: "secret"},
	})

	resp, err := c.Get(context.Background(), "/contacts", url.Values{"$filter": {"updated_at gt '2024'"}})
	require.NoError(t, err)

	var body map[string]bool
	require.NoError(t, resp.JSON(&body))
	assert.True(t, body["ok"])
}

func TestPostSendsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Acme", payload["name"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"42"}`))
	}))
	defer server.Close()

	c := New(Config{System: "external", BaseURL: server.URL, Auth: BearerToken{Token: "t"}})
	resp, err := c.Post(context.Background(), "customers", map[string]any{"name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestNonSuccessIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"name is required"}`))
	}))
	defer server.Close()

	c := New(Config{System: "external", BaseURL: server.URL})
	resp, err := c.Put(context.Background(), "customers/1", map[string]any{})
	require.Error(t, err)
	require.NotNil(t, resp)

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "name is required")
}

func TestGetRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := New(Config{System: "hub", BaseURL: server.URL, MaxRetries: 1})
	_, err := c.Get(context.Background(), "contacts", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := New(Config{System: "hub", BaseURL: server.URL, MaxRetries: 3})
	_, err := c.Post(context.Background(), "batch", map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestURL(t *testing.T) {
	c := New(Config{BaseURL: "https://hub.example/api/v2/cld-1/"})
	assert.Equal(t, "https://hub.example/api/v2/cld-1/contacts", c.URL("/contacts"))
	assert.Equal(t, "https://other.example/x", c.URL("https://other.example/x"))
	assert.Equal(t, "https://hub.example/api/v2/cld-1/", c.URL(""))
}
