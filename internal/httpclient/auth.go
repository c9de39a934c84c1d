package httpclient

import (
	"net/http"
)

// Auth applies credentials to an outgoing request.
type Auth interface {
	Apply(req *http.Request)
}

// NoAuth represents no authentication.
type NoAuth struct{}

// Apply implements Auth.
func (NoAuth) Apply(*http.Request) {}

// BasicAuth uses HTTP Basic Authentication. The Hub authenticates with an
// API key and secret this way.
type BasicAuth struct {
	Username string
	Password string
}

// Apply implements Auth.
func (a BasicAuth) Apply(req *http.Request) {
	if a.Username == "" && a.Password == "" {
		return
	}
	req.SetBasicAuth(a.Username, a.Password)
}

// BearerToken uses Bearer token authentication.
type BearerToken struct {
	Token string
}

// Apply implements Auth.
func (a BearerToken) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// APIKey sends a key in a custom header.
type APIKey struct {
	Key    string
	Header string // default: X-API-Key
}

// Apply implements Auth.
func (a APIKey) Apply(req *http.Request) {
	if a.Key == "" {
		return
	}
	header := a.Header
	if header == "" {
		header = "X-API-Key"
	}
	req.Header.Set(header, a.Key)
}
