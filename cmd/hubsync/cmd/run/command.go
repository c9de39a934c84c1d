package run

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/hubsync/cmd/application"
)

// NewCommand creates the run command.
func NewCommand(app application.Application) *cobra.Command {
	var flags *Flags

	cmd := &cobra.Command{
		Use:     "run",
		GroupID: "core",
		Short:   "Run scheduled sync cycles and the HTTP service",
		Long: `Run keeps every configured organization in sync on the configured
interval (sync.interval) and serves HTTP endpoints to trigger cycles,
ingest pushed records, and stream sync events.

Endpoints (under --prefix, default /api/v1):
  GET  /health, /ready, /stats
  GET  /organizations
  POST /organizations/{org}/sync
  POST /organizations/{org}/entities/{entity}/records
  GET  /organizations/{org}/correlations
  GET  /organizations/{org}/synchronizations
  GET  /events/ws, /events/stream
  GET  /metrics (root)

The service stops gracefully on SIGINT or SIGTERM.`,
		Example: `  # Scheduled cycles plus the HTTP service on :8080
  hubsync run

  # Require an API key and limit request rates
  HUBSYNC_SERVER_API_KEY=secret hubsync run --auth --rate-limit 120

  # Only serve endpoints, never sync on a schedule
  hubsync run --no-auto-sync --addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ExecuteRun(cmd.Context(), app, flags, cmd.OutOrStdout())
		},
	}

	flags = addRunFlags(cmd, app)

	return cmd
}
