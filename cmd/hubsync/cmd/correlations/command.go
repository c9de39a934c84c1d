// Package correlations provides the correlations command, which inspects
// the correlation store and the recorded sync cycles of an organization.
package correlations

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/hubsync/cmd/application"
	"github.com/agentstation/hubsync/internal/cmd/output"
	"github.com/agentstation/hubsync/internal/cmd/table"
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
)

// Flags holds the correlations command flags.
type Flags struct {
	HubEntity      string
	ExternalEntity string
	Failed         bool
	Limit          int
	History        bool
}

// NewCommand creates the correlations command.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "correlations <organization>",
		Aliases: []string{"corr"},
		GroupID: "management",
		Short:   "Inspect record correlations and sync history",
		Long: `List the correlations linking Hub records to External records for an
organization, or with --history the recorded sync cycles.

Failed correlations carry the message of their last failed push.`,
		Example: `  hubsync correlations org-1
  hubsync correlations org-1 --entity contacts --failed
  hubsync correlations org-1 --history -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ExecuteCorrelations(cmd.Context(), app, flags, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&flags.HubEntity, "entity", "e", "", "Filter by Hub entity type")
	cmd.Flags().StringVar(&flags.ExternalEntity, "external-entity", "", "Filter by External entity type")
	cmd.Flags().BoolVar(&flags.Failed, "failed", false, "Only correlations whose last push failed")
	cmd.Flags().IntVarP(&flags.Limit, "limit", "n", 100, "Maximum rows")
	cmd.Flags().BoolVar(&flags.History, "history", false, "List recorded sync cycles instead")

	return cmd
}

// ExecuteCorrelations prints correlations or sync cycles of organization.
func ExecuteCorrelations(ctx context.Context, app application.Application, flags *Flags, organization string, w io.Writer) error {
	if flags.Limit <= 0 {
		return errors.NewValidationError("limit", flags.Limit, "limit must be positive")
	}

	store, err := app.Store()
	if err != nil {
		return err
	}

	format, err := output.Resolve(app.OutputFormat())
	if err != nil {
		return err
	}

	if flags.History {
		runs, err := store.Recent(ctx, organization, flags.Limit)
		if err != nil {
			return err
		}
		return output.Print(w, format, output.Result{
			Rows:  table.SynchronizationsToTableData(runs),
			Value: nonNil(runs),
			Empty: "No sync cycles recorded for " + organization + ".",
		})
	}

	rows, err := store.List(ctx, organization, correlation.Filter{
		HubEntity:      flags.HubEntity,
		ExternalEntity: flags.ExternalEntity,
		Failed:         flags.Failed,
		Limit:          flags.Limit,
	})
	if err != nil {
		return err
	}
	return output.Print(w, format, output.Result{
		Rows:  table.CorrelationsToTableData(rows),
		Value: nonNil(rows),
		Empty: "No correlations found for " + organization + ".",
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
