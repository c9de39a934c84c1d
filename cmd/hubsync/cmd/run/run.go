package run

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/hubsync/cmd/application"
	"github.com/agentstation/hubsync/internal/server"
	"github.com/agentstation/hubsync/pkg/errors"
)

// ExecuteRun starts the service and blocks until ctx is cancelled or the
// listener fails.
func ExecuteRun(ctx context.Context, app application.Application, flags *Flags, out io.Writer) error {
	logger := app.Logger()

	srv, err := server.New(app, BuildServerConfig(flags, app.APIKey()))
	if err != nil {
		return err
	}
	client, err := app.Client()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", flags.Addr)
	if err != nil {
		return errors.WrapResource("listen", "address", flags.Addr, err)
	}

	srv.Start()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	if !flags.NoAutoSync {
		if err := client.AutoSyncOn(); err != nil {
			_ = ln.Close()
			return err
		}
		defer func() { _ = client.AutoSyncOff() }()
	}

	logger.Info().
		Str("addr", ln.Addr().String()).
		Int("organizations", len(client.Organizations())).
		Bool("auto_sync", !flags.NoAutoSync).
		Bool("auth", flags.Auth).
		Dur("interval", app.SyncInterval()).
		Msg("Service starting")
	_, _ = fmt.Fprintf(out, "Listening on %s\n", ln.Addr())

	return serve(ctx, srv.HTTPServer(), ln, flags.Drain, logger)
}

// serve runs httpServer on ln until ctx is done, then drains connections
// for at most drain.
func serve(ctx context.Context, httpServer *http.Server, ln net.Listener, drain time.Duration, logger *zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info().Msg("Service stopped gracefully")
		return nil
	})

	return g.Wait()
}
