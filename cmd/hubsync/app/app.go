// Package app provides the application context and dependency management
// for the hubsync CLI. It centralizes configuration, dependency injection,
// and lifecycle management.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync"
	"github.com/agentstation/hubsync/cmd/application"
	"github.com/agentstation/hubsync/internal/config"
	"github.com/agentstation/hubsync/internal/store/postgres"
	"github.com/agentstation/hubsync/internal/store/sqlite"
	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/hub"
	pkgsync "github.com/agentstation/hubsync/pkg/sync"
)

// App represents the hubsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Metrics registry
	registry *prometheus.Registry

	// Store and client (lazy-initialized, singletons)
	mu     sync.RWMutex
	store  application.Store
	client hubsync.Client
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version:  version,
		commit:   commit,
		date:     date,
		builtBy:  builtBy,
		registry: prometheus.NewRegistry(),
	}

	// Load configuration
	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	// Initialize logger
	logger := NewLogger(config)
	app.logger = &logger

	// Apply any custom options
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Registry returns the registry sync metrics are registered with.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// SyncInterval returns the time between scheduled cycles.
func (a *App) SyncInterval() time.Duration {
	return a.config.SyncInterval
}

// ListenAddr returns the listen address of the run server.
func (a *App) ListenAddr() string {
	return a.config.ListenAddr
}

// APIKey returns the key protecting the run server.
func (a *App) APIKey() string {
	return a.config.APIKey
}

// Store returns the correlation store, opening it lazily if needed.
func (a *App) Store() (application.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.openStore()
}

// openStore must be called with a.mu held.
func (a *App) openStore() (application.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	var (
		store application.Store
		err   error
	)
	switch a.config.StoreDriver {
	case "sqlite", "":
		store, err = sqlite.Open(a.config.StoreDSN)
	case "postgres":
		store, err = postgres.Open(a.config.StoreDSN)
	case "memory":
		store = correlation.NewMemory()
	default:
		return nil, errors.NewConfigError("store.driver", a.config.StoreDriver, errors.ErrInvalidInput)
	}
	if err != nil {
		return nil, errors.WrapResource("open", "store", a.config.StoreDriver, err)
	}

	a.store = store
	return store, nil
}

// Client returns the hubsync client, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created.
func (a *App) Client() (hubsync.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.buildClientOptions()
	if err != nil {
		return nil, err
	}
	c, err := hubsync.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}

	a.client = c
	return c, nil
}

// Shutdown performs graceful shutdown of the application.
// It stops scheduled cycles and closes the store.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.RLock()
	c, store := a.client, a.store
	a.mu.RUnlock()

	if c != nil {
		if err := c.AutoSyncOff(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop auto-sync during shutdown")
		}
	}

	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return errors.WrapResource("close", "store", a.config.StoreDriver, err)
		}
	}
	return nil
}

// buildClientOptions constructs client options from the configuration.
// Must be called with a.mu held.
func (a *App) buildClientOptions() ([]hubsync.Option, error) {
	// Step 1: entity configuration
	file, err := config.Load(a.config.EntitiesFile)
	if err != nil {
		return nil, err
	}

	// Step 2: correlation store
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	// Step 3: metrics
	metrics, err := events.NewMetricsSink(a.registry)
	if err != nil {
		return nil, errors.WrapResource("register", "metrics", "", err)
	}

	opts := []hubsync.Option{
		hubsync.WithStore(store),
		hubsync.WithEventSink(metrics),
		hubsync.WithConcurrency(a.config.Concurrency),
		hubsync.WithSyncTimeout(a.config.SyncTimeout),
		hubsync.WithAutoSyncInterval(a.config.SyncInterval),
		hubsync.WithSyncOptions(pkgsync.WithBatchSize(a.config.BatchSize)),
	}

	// Step 4: one tenant per organization
	for _, org := range file.Organizations {
		hubClient, err := hub.NewHTTPClient(hub.Config{
			URL:             a.config.HubURL,
			APIPath:         a.config.HubAPIPath,
			OrganizationUID: org.UID,
			Key:             a.config.HubKey,
			Secret:          a.config.HubSecret,
			Timeout:         a.config.HubTimeout,
			RateLimit:       a.config.HubRateLimit,
			RateBurst:       a.config.HubRateBurst,
			MaxRetries:      a.config.HubRetries,
		})
		if err != nil {
			return nil, errors.WrapResource("create", "hub client", org.ID, err)
		}
		externalClient, err := file.ExternalClient(org, config.GetString)
		if err != nil {
			return nil, err
		}
		defs, err := file.Definitions(org)
		if err != nil {
			return nil, err
		}

		organization := org.Organization
		opts = append(opts, hubsync.WithTenant(hubsync.Tenant{
			Organization: &organization,
			Hub:          hubClient,
			External:     externalClient,
			Definitions:  defs,
		}))
	}

	return opts, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client instance (useful for testing).
func WithClient(c hubsync.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}

// WithStore sets a custom store instance (useful for testing).
func WithStore(store application.Store) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}

// Ensure App implements Application at compile time.
var _ application.Application = (*App)(nil)
