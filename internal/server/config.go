package server

import "time"

// Config holds server configuration.
type Config struct {
	// Server settings
	Addr string

	// API settings
	PathPrefix string

	// CORS settings
	CORSEnabled bool
	CORSOrigins []string

	// Authentication settings
	AuthEnabled bool
	AuthHeader  string
	APIKey      string

	// Performance settings
	RateLimit int // Requests per minute per IP (0 to disable)

	// MaxIngestBytes bounds webhook bodies
	MaxIngestBytes int64

	// HTTP timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Features
	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		PathPrefix:     "/api/v1",
		AuthHeader:     "X-API-Key",
		RateLimit:      0,
		MaxIngestBytes: 10 << 20,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   0, // event streams and synchronous syncs stay open
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}
