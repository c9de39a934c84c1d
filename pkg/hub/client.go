// Package hub talks to the central Hub: paginated differential fetches and
// batched, sequential writes.
package hub

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/agentstation/hubsync/internal/httpclient"
	"github.com/agentstation/hubsync/pkg/errors"
)

// Client is the transport the fetcher and pusher depend on. Get returns the
// raw body of a query; Batch returns the raw body of a batch call. Bodies are
// returned undecoded so callers can tell an empty answer from a malformed one.
type Client interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Batch(ctx context.Context, req *BatchRequest) ([]byte, error)
}

// Config configures an HTTPClient.
type Config struct {
	// URL is the Hub host, e.g. "https://api.hub.example".
	URL string
	// APIPath prefixes organization scoped queries (default "/api/v2").
	APIPath string
	// BatchPath is the batch endpoint (default "/batch").
	BatchPath string
	// OrganizationUID scopes queries to one organization.
	OrganizationUID string

	Key    string
	Secret string

	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	MaxRetries int
	Transport  http.RoundTripper
}

// HTTPClient is the Client for the Hub REST API.
type HTTPClient struct {
	http     *httpclient.Client
	batchURL string
}

// NewHTTPClient returns a client scoped to one organization.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.URL == "" {
		return nil, errors.NewValidationError("url", cfg.URL, "hub url is required")
	}
	if cfg.OrganizationUID == "" {
		return nil, errors.NewValidationError("organization_uid", cfg.OrganizationUID, "organization uid is required")
	}
	if cfg.APIPath == "" {
		cfg.APIPath = "/api/v2"
	}
	if cfg.BatchPath == "" {
		cfg.BatchPath = "/batch"
	}

	host := strings.TrimSuffix(cfg.URL, "/")
	return &HTTPClient{
		http: httpclient.New(httpclient.Config{
			System:     "hub",
			BaseURL:    host + "/" + strings.Trim(cfg.APIPath, "/") + "/" + cfg.OrganizationUID,
			Auth:       httpclient.BasicAuth{Username: cfg.Key, Password: cfg.Secret},
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			RateBurst:  cfg.RateBurst,
			MaxRetries: cfg.MaxRetries,
			Headers: map[string]string{
				// ask the Hub to expose ids issued by other systems
				"Hub-External-Ids": "true",
			},
			Transport: cfg.Transport,
		}),
		batchURL: host + "/" + strings.TrimPrefix(cfg.BatchPath, "/"),
	}, nil
}

// Get implements Client.
func (c *HTTPClient) Get(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.http.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Batch implements Client.
func (c *HTTPClient) Batch(ctx context.Context, req *BatchRequest) ([]byte, error) {
	resp, err := c.http.Post(ctx, c.batchURL, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
