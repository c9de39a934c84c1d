package sync

import (
	"context"
	"io"

	"github.com/agentstation/hubsync/cmd/application"
	"github.com/agentstation/hubsync/internal/cmd/output"
	"github.com/agentstation/hubsync/pkg/errors"
	pkgsync "github.com/agentstation/hubsync/pkg/sync"
)

// ExecuteSync runs the cycles requested on the command line and writes
// their results to w.
func ExecuteSync(ctx context.Context, app application.Application, flags *Flags, organizations []string, w io.Writer) error {
	logger := app.Logger()

	format, err := output.Resolve(app.OutputFormat())
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}
	opts := BuildSyncOptions(flags)

	var (
		results []*pkgsync.Result
		errs    []error
	)
	if len(organizations) == 0 {
		logger.Info().Int("organizations", len(client.Organizations())).Msg("Syncing all organizations")
		results, err = client.SyncAll(ctx, opts...)
		if err != nil {
			errs = append(errs, err)
		}
	} else {
		for _, org := range organizations {
			result, err := client.Sync(ctx, org, opts...)
			if result != nil {
				results = append(results, result)
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := printResults(w, format, results); err != nil {
		return err
	}
	return errors.Join(errs...)
}
