package external

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/internal/httpclient"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/record"
)

// Endpoint describes how one External entity type is exposed over REST.
type Endpoint struct {
	// Path is the collection path, e.g. "/customers".
	Path string `yaml:"path"`
	// Collection is the response key holding the record list. Empty when the
	// body is the list itself.
	Collection string `yaml:"collection,omitempty"`
	// Item is the key wrapping a single record in request and response
	// bodies. Empty when records are sent bare.
	Item string `yaml:"item,omitempty"`
	// IDField is the dotted path of the id in a created record (default "id").
	IDField string `yaml:"id_field,omitempty"`
	// UpdatedSince is the query parameter selecting records changed after a
	// time. Without it every fetch is a full pull.
	UpdatedSince string `yaml:"updated_since,omitempty"`
	// Next is the dotted path of the next page url in a list response.
	Next string `yaml:"next,omitempty"`
	// UpdateMethod is PUT (default) or PATCH.
	UpdateMethod string `yaml:"update_method,omitempty"`
}

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	System     string
	BaseURL    string
	Auth       httpclient.Auth
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	MaxRetries int
	Transport  http.RoundTripper
	// Endpoints are keyed by normalized External entity name.
	Endpoints map[string]Endpoint
}

// RESTClient is a Client for JSON REST APIs declared in configuration.
type RESTClient struct {
	http      *httpclient.Client
	endpoints map[string]Endpoint
}

// NewRESTClient returns a client for the configured endpoints.
func NewRESTClient(cfg RESTConfig) (*RESTClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.NewValidationError("base_url", cfg.BaseURL, "external base url is required")
	}
	if cfg.System == "" {
		cfg.System = "external"
	}
	endpoints := make(map[string]Endpoint, len(cfg.Endpoints))
	for name, ep := range cfg.Endpoints {
		if ep.Path == "" {
			return nil, errors.NewValidationError("path", name, "endpoint path is required")
		}
		if ep.IDField == "" {
			ep.IDField = "id"
		}
		switch strings.ToUpper(ep.UpdateMethod) {
		case "", http.MethodPut:
			ep.UpdateMethod = http.MethodPut
		case http.MethodPatch:
			ep.UpdateMethod = http.MethodPatch
		default:
			return nil, errors.NewValidationError("update_method", ep.UpdateMethod, "must be PUT or PATCH")
		}
		endpoints[strings.ToLower(name)] = ep
	}

	return &RESTClient{
		http: httpclient.New(httpclient.Config{
			System:     cfg.System,
			BaseURL:    cfg.BaseURL,
			Auth:       cfg.Auth,
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			RateBurst:  cfg.RateBurst,
			MaxRetries: cfg.MaxRetries,
			Transport:  cfg.Transport,
		}),
		endpoints: endpoints,
	}, nil
}

func (c *RESTClient) endpoint(entity string) (Endpoint, error) {
	ep, ok := c.endpoints[strings.ToLower(entity)]
	if !ok {
		return Endpoint{}, errors.NewNotFoundError("endpoint", entity)
	}
	return ep, nil
}

// Fetch implements Client, following the next page url when the endpoint
// declares one.
func (c *RESTClient) Fetch(ctx context.Context, entity string, lastSync *utc.Time) ([]record.Record, error) {
	ep, err := c.endpoint(entity)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if lastSync != nil && !lastSync.IsZero() && ep.UpdatedSince != "" {
		query.Set(ep.UpdatedSince, lastSync.Time.UTC().Format(time.RFC3339))
	}

	var (
		all  []record.Record
		path = ep.Path
		seen = map[string]bool{}
	)
	for path != "" {
		if seen[path] {
			return nil, errors.NewFetchError(entity, len(seen), "pagination cursor repeats "+path, nil)
		}
		seen[path] = true

		resp, err := c.http.Get(ctx, path, query)
		if err != nil {
			return nil, err
		}
		records, next, err := decodePage(resp.Body, ep)
		if err != nil {
			return nil, errors.NewFetchError(entity, len(seen)-1, err.Error(), nil)
		}
		all = append(all, records...)
		// next urls carry their own query
		path, query = next, nil
	}
	return all, nil
}

func decodePage(body []byte, ep Endpoint) ([]record.Record, string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, "", errors.New("undecodable response")
	}

	list := v
	var next string
	if envelope, ok := v.(map[string]any); ok {
		if ep.Next != "" {
			if n, ok := record.Record(envelope).Get(ep.Next); ok {
				next = record.Stringify(n)
			}
		}
		if ep.Collection != "" {
			list, ok = envelope[ep.Collection]
			if !ok {
				return nil, "", errors.New("missing key " + ep.Collection)
			}
		}
	}

	items, ok := list.([]any)
	if !ok {
		return nil, "", errors.New("response is not a record list")
	}
	records := make([]record.Record, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, "", errors.New("response is not a record list")
		}
		records = append(records, record.Record(m))
	}
	return records, next, nil
}

// Create implements Client.
func (c *RESTClient) Create(ctx context.Context, entity string, payload record.Record) (string, error) {
	ep, err := c.endpoint(entity)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Post(ctx, ep.Path, wrap(ep, payload))
	if err != nil {
		return "", err
	}

	var body map[string]any
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return "", errors.WrapAPI("external", resp.StatusCode, errors.New("undecodable create response"))
	}
	created := record.Record(body)
	if ep.Item != "" {
		if inner, ok := body[ep.Item].(map[string]any); ok {
			created = inner
		}
	}
	id, ok := created.Get(ep.IDField)
	if !ok || record.Stringify(id) == "" {
		return "", errors.WrapAPI("external", resp.StatusCode, errors.New("create response has no "+ep.IDField))
	}
	return record.Stringify(id), nil
}

// Update implements Client.
func (c *RESTClient) Update(ctx context.Context, entity string, payload record.Record, id string) error {
	ep, err := c.endpoint(entity)
	if err != nil {
		return err
	}
	path := strings.TrimSuffix(ep.Path, "/") + "/" + url.PathEscape(id)
	_, err = c.http.Do(ctx, &httpclient.Request{Method: ep.UpdateMethod, Path: path, Body: wrap(ep, payload)})
	return err
}

func wrap(ep Endpoint, payload record.Record) any {
	if ep.Item == "" {
		return payload
	}
	return map[string]any{ep.Item: payload}
}
