// Package sync provides the sync command implementation.
package sync

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/hubsync/pkg/push"
	pkgsync "github.com/agentstation/hubsync/pkg/sync"
)

// Flags holds the flags of the sync command.
type Flags struct {
	Full      bool
	Entities  []string
	Preempt   string
	BatchSize int
	Filter    string
	OrderBy   string
	FailFast  bool
	Timeout   time.Duration
}

// addSyncFlags registers the sync flags on cmd.
func addSyncFlags(cmd *cobra.Command) *Flags {
	flags := &Flags{}
	cmd.Flags().BoolVar(&flags.Full, "full", false, "ignore the last synchronization and fetch everything")
	cmd.Flags().StringSliceVarP(&flags.Entities, "entity", "e", nil, "entity types to sync (default all)")
	cmd.Flags().StringVar(&flags.Preempt, "preempt", "", "side winning every conflict: hub or external")
	cmd.Flags().IntVar(&flags.BatchSize, "batch-size", 0, "operations per Hub batch call")
	cmd.Flags().StringVar(&flags.Filter, "filter", "", "extra Hub $filter expression")
	cmd.Flags().StringVar(&flags.OrderBy, "order-by", "", "Hub $orderby expression")
	cmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "stop at the first failing entity type")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "timeout for each cycle (default from config)")
	return flags
}

// BuildSyncOptions converts flags to sync options. Zero values keep the
// configured defaults.
func BuildSyncOptions(flags *Flags) []pkgsync.Option {
	var opts []pkgsync.Option

	if flags.Full {
		opts = append(opts, pkgsync.WithFullSync(true))
	}
	if len(flags.Entities) > 0 {
		opts = append(opts, pkgsync.WithEntities(flags.Entities...))
	}
	if flags.Preempt != "" {
		opts = append(opts, pkgsync.WithPreemption(push.Side(flags.Preempt)))
	}
	if flags.BatchSize > 0 {
		opts = append(opts, pkgsync.WithBatchSize(flags.BatchSize))
	}
	if flags.Filter != "" {
		opts = append(opts, pkgsync.WithFilter(flags.Filter))
	}
	if flags.OrderBy != "" {
		opts = append(opts, pkgsync.WithOrderBy(flags.OrderBy))
	}
	if flags.FailFast {
		opts = append(opts, pkgsync.WithFailFast(true))
	}
	if flags.Timeout > 0 {
		opts = append(opts, pkgsync.WithTimeout(flags.Timeout))
	}

	return opts
}
