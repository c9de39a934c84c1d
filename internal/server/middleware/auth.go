package middleware

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync/internal/server/response"
)

// AuthConfig configures API key authentication.
type AuthConfig struct {
	Enabled bool
	APIKey  string
	// HeaderName carries the key. "Authorization: Bearer <key>" is accepted
	// as well.
	HeaderName string
	// PublicPaths are served without a key.
	PublicPaths []string
	// StreamPaths also take the key from ?api_key= on GET: browser
	// EventSource and WebSocket clients cannot set headers.
	StreamPaths []string
}

// DefaultAuthConfig returns a disabled configuration for the default path
// prefix. Probes and metrics are public.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		HeaderName:  "X-API-Key",
		PublicPaths: []string{"/health", "/metrics", "/api/v1/health", "/api/v1/ready"},
		StreamPaths: []string{"/api/v1/events/ws", "/api/v1/events/stream"},
	}
}

// Auth rejects requests that do not present the configured API key with a
// 401 envelope.
func Auth(config AuthConfig, logger *zerolog.Logger) func(http.Handler) http.Handler {
	want := []byte(config.APIKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled || slices.Contains(config.PublicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := presentedKey(r, config)
			if key != "" && subtle.ConstantTimeCompare([]byte(key), want) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn().
				Str("path", r.URL.Path).
				Str("client", clientIP(r)).
				Bool("key_provided", key != "").
				Msg("Rejected request without a valid API key")
			response.Unauthorized(w, "Invalid or missing API key",
				"Provide the API key in the "+config.HeaderName+" header")
		})
	}
}

func presentedKey(r *http.Request, config AuthConfig) string {
	if key := r.Header.Get(config.HeaderName); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if r.Method == http.MethodGet && slices.Contains(config.StreamPaths, r.URL.Path) {
		return r.URL.Query().Get("api_key")
	}
	return ""
}
