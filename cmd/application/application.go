// Package application provides the application interface for hubsync commands.
//
// The Application interface defines the contract between the application layer and
// command implementations, enabling dependency injection and testability.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            client, err := app.Client()
//	            if err != nil {
//	                return err
//	            }
//	            _, err = client.SyncAll(cmd.Context())
//	            return err
//	        },
//	    }
//	}
//
// Testing with Mocks:
//
//	mock := &application.Mock{
//	    ClientFunc: func() (hubsync.Client, error) {
//	        return testClient, nil
//	    },
//	}
//	cmd := NewCommand(mock)
package application

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync"
	"github.com/agentstation/hubsync/pkg/correlation"
)

// Store is a correlation store that also records synchronization runs.
type Store interface {
	correlation.Store
	correlation.History
}

// Application provides the application interface that commands need.
// The App struct from cmd/hubsync/app implements this interface.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Client returns the hubsync client, creating it lazily on first use.
	Client() (hubsync.Client, error)

	// Store returns the configured correlation store.
	Store() (Store, error)

	// Registry returns the registry sync metrics are registered with.
	Registry() *prometheus.Registry

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table).
	OutputFormat() string

	// SyncInterval returns the time between scheduled cycles.
	SyncInterval() time.Duration

	// ListenAddr returns the listen address of the run server.
	ListenAddr() string

	// APIKey returns the key protecting the run server, empty when unset.
	APIKey() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
