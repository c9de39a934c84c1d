package sync

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/hubsync/cmd/application"
)

// NewCommand creates the sync command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var flags *Flags

	cmd := &cobra.Command{
		Use:     "sync [organization...]",
		GroupID: "core",
		Short:   "Run one synchronization cycle",
		Long: `Sync runs one synchronization cycle between the Hub and the External
system of each organization:

1. Fetch records changed since the last successful cycle on both sides
2. Consolidate them against the stored correlations
3. Push creations and updates to the Hub in batches
4. Push creations and updates to the External system and link new
   External records back to the Hub

Without arguments every configured organization is synced in parallel.`,
		Example: `  hubsync sync                              # Sync every organization
  hubsync sync org-1                        # Sync one organization
  hubsync sync org-1 --entity contacts      # Sync one entity type
  hubsync sync --full --preempt hub         # Full pull, Hub wins conflicts
  hubsync sync -o json                      # Machine readable results`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecuteSync(cmd.Context(), app, flags, args, cmd.OutOrStdout())
		},
	}

	flags = addSyncFlags(cmd)

	return cmd
}
