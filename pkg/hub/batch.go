package hub

import (
	"encoding/json"
	"strings"

	"github.com/agentstation/hubsync/pkg/record"
)

// Batch operation methods.
const (
	MethodPost = "post"
	MethodPut  = "put"
)

// BatchOperation is one write inside a batch call. Creates carry no id in
// the url.
type BatchOperation struct {
	Method string         `json:"method"`
	URL    string         `json:"url"`
	Params map[string]any `json:"params"`
}

// BatchRequest is the envelope of a batch call.
type BatchRequest struct {
	Sequential bool             `json:"sequential"`
	Ops        []BatchOperation `json:"ops"`
}

// BatchResult is the answer to one operation, aligned by position.
type BatchResult struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// OK reports whether the operation was applied.
func (r BatchResult) OK() bool {
	return r.Status == 200 || r.Status == 201
}

// Message renders the result body for storage on a correlation. JSON
// strings are unquoted.
func (r BatchResult) Message() string {
	var s string
	if err := json.Unmarshal(r.Body, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(r.Body))
}

// BatchResponse is the decoded answer to a batch call.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// NewOperation builds an operation against a collection below prefix, the
// organization scoped api path ("/api/v2/{uid}"). An empty id produces a
// create.
func NewOperation(prefix, collection, singular, id string, payload record.Record) BatchOperation {
	method := MethodPost
	url := strings.TrimSuffix(prefix, "/") + "/" + collection
	if id != "" {
		method = MethodPut
		url += "/" + id
	}
	return BatchOperation{
		Method: method,
		URL:    url,
		Params: map[string]any{singular: payload},
	}
}

// createdID extracts the Hub id from a create result body, which wraps the
// created record under its collection or singular name.
func createdID(body json.RawMessage, keys ...string) string {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if id := record.FindHub(record.ParseIdentities(rec["id"])); id != "" {
			return id
		}
	}
	return ""
}
