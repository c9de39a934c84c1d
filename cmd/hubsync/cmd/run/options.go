// Package run provides the run command: the long-running sync service with
// scheduled cycles and the HTTP trigger, ingest, and event stream endpoints.
package run

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/hubsync/cmd/application"
	"github.com/agentstation/hubsync/internal/server"
)

// Flags holds the run command flags.
type Flags struct {
	Addr        string
	Prefix      string
	Auth        bool
	AuthHeader  string
	CORS        bool
	CORSOrigins []string
	RateLimit   int
	NoAutoSync  bool
	NoMetrics   bool
	Drain       time.Duration
}

func addRunFlags(cmd *cobra.Command, app application.Application) *Flags {
	flags := &Flags{}
	defaults := server.DefaultConfig()

	addr := app.ListenAddr()
	if addr == "" {
		addr = defaults.Addr
	}

	cmd.Flags().StringVar(&flags.Addr, "addr", addr, "Listen address")
	cmd.Flags().StringVar(&flags.Prefix, "prefix", defaults.PathPrefix, "API path prefix")
	cmd.Flags().BoolVar(&flags.Auth, "auth", false, "Require the configured API key (server.api_key)")
	cmd.Flags().StringVar(&flags.AuthHeader, "auth-header", defaults.AuthHeader, "Authentication header name")
	cmd.Flags().BoolVar(&flags.CORS, "cors", false, "Enable CORS")
	cmd.Flags().StringSliceVar(&flags.CORSOrigins, "cors-origins", nil, "Allowed CORS origins (comma-separated, implies --cors)")
	cmd.Flags().IntVar(&flags.RateLimit, "rate-limit", 0, "Requests per minute per IP (0 to disable)")
	cmd.Flags().BoolVar(&flags.NoAutoSync, "no-auto-sync", false, "Serve endpoints without scheduled cycles")
	cmd.Flags().BoolVar(&flags.NoMetrics, "no-metrics", false, "Disable the /metrics endpoint")
	cmd.Flags().DurationVar(&flags.Drain, "drain", 30*time.Second, "Graceful shutdown timeout")

	return flags
}

// BuildServerConfig converts flags into a server configuration.
func BuildServerConfig(flags *Flags, apiKey string) server.Config {
	cfg := server.DefaultConfig()
	cfg.Addr = flags.Addr
	if flags.Prefix != "" {
		cfg.PathPrefix = flags.Prefix
	}
	cfg.AuthEnabled = flags.Auth
	cfg.APIKey = apiKey
	if flags.AuthHeader != "" {
		cfg.AuthHeader = flags.AuthHeader
	}
	cfg.CORSEnabled = flags.CORS || len(flags.CORSOrigins) > 0
	cfg.CORSOrigins = flags.CORSOrigins
	cfg.RateLimit = flags.RateLimit
	cfg.MetricsEnabled = !flags.NoMetrics
	return cfg
}
