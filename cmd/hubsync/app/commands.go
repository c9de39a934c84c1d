package app

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/hubsync/cmd/hubsync/cmd/correlations"
	"github.com/agentstation/hubsync/cmd/hubsync/cmd/run"
	"github.com/agentstation/hubsync/cmd/hubsync/cmd/sync"
	"github.com/agentstation/hubsync/internal/cmd/output"
	"github.com/agentstation/hubsync/internal/cmd/table"
	"github.com/agentstation/hubsync/internal/config"
)

// CreateSyncCommand creates the sync command with app dependencies.
func (a *App) CreateSyncCommand() *cobra.Command {
	return sync.NewCommand(a)
}

// CreateRunCommand creates the run command with app dependencies.
func (a *App) CreateRunCommand() *cobra.Command {
	return run.NewCommand(a)
}

// CreateCorrelationsCommand creates the correlations command with app dependencies.
func (a *App) CreateCorrelationsCommand() *cobra.Command {
	return correlations.NewCommand(a)
}

// CreateValidateCommand creates the validate command, which checks the
// entity configuration without contacting either system.
func (a *App) CreateValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate [entities-file]",
		GroupID: "management",
		Short:   "Validate the entity configuration",
		Long: `Validate loads the entity configuration (default hubsync.entities.yaml,
or the entities setting) and prints the entity types synced per organization.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.config.EntitiesFile
			if len(args) == 1 {
				path = args[0]
			}
			file, err := config.Load(path)
			if err != nil {
				return err
			}

			data := table.Data{Headers: table.Headers("organization", "hub_entity", "external_entity", "singleton", "references")}
			for _, org := range file.Organizations {
				defs, err := file.Definitions(org)
				if err != nil {
					return err
				}
				for _, def := range defs {
					refs := make([]string, 0, len(def.References))
					for _, ref := range def.References {
						refs = append(refs, ref.Path)
					}
					data.Rows = append(data.Rows, []string{
						org.ID,
						def.HubEntity,
						def.ExternalEntity,
						strconv.FormatBool(def.Singleton),
						strings.Join(refs, ", "),
					})
				}
			}

			a.logger.Info().
				Str("file", path).
				Int("organizations", len(file.Organizations)).
				Int("entities", len(file.Entities)).
				Msg("Entity configuration is valid")
			return output.Print(cmd.OutOrStdout(), output.Table, output.Result{Rows: data})
		},
	}
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("hubsync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
