// Package server provides the HTTP server of hubsync run: probes, metrics,
// webhook ingestion, on-demand cycles, correlation queries and a live
// stream of synchronization events.
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync"
	"github.com/agentstation/hubsync/cmd/application"
	"github.com/agentstation/hubsync/internal/server/events"
	"github.com/agentstation/hubsync/internal/server/sse"
	ws "github.com/agentstation/hubsync/internal/server/websocket"
	syncevents "github.com/agentstation/hubsync/pkg/events"
	"github.com/agentstation/hubsync/pkg/errors"
	"github.com/agentstation/hubsync/pkg/sync"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	app            application.Application
	client         hubsync.Client
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
}

// New creates a new server instance with the given configuration.
func New(app application.Application, cfg Config) (*Server, error) {
	logger := app.Logger()

	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultConfig().PathPrefix
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = DefaultConfig().AuthHeader
	}
	if cfg.MaxIngestBytes <= 0 {
		cfg.MaxIngestBytes = DefaultConfig().MaxIngestBytes
	}
	if cfg.AuthEnabled && cfg.APIKey == "" {
		return nil, errors.NewValidationError("api_key", "", "authentication requires an api key")
	}

	client, err := app.Client()
	if err != nil {
		return nil, err
	}

	// Create unified event broker and transports
	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	// Subscribe transports to broker
	broker.Subscribe(wsHub)
	broker.Subscribe(sseBroadcaster)

	// Create context for managing background services
	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		app:            app,
		client:         client,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg),
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	server.connectHooks()
	return server, nil
}

// connectHooks publishes client hook callbacks to the broker.
func (s *Server) connectHooks() {
	s.client.OnSyncCompleted(func(result *sync.Result) {
		s.broker.Publish(events.SyncCompleted, result.Organization, map[string]any{
			"synchronization_id": result.SynchronizationID,
			"status":             result.Status,
			"summary":            result.Summary(),
		})
	})

	s.client.OnSyncFailed(func(organization string, err error) {
		s.broker.Publish(events.SyncFailed, organization, map[string]any{
			"error": err.Error(),
		})
	})

	s.client.OnRecordFailed(func(e syncevents.Event) {
		data := map[string]any{
			"entity": e.Entity,
			"side":   e.Side,
			"id":     e.ID,
		}
		if e.Err != nil {
			data["error"] = e.Err.Error()
		}
		s.broker.Publish(events.RecordFailed, e.Organization, data)
	})
}

// checkOrigin accepts same-host upgrades and the configured CORS origins.
func checkOrigin(cfg Config) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		switch {
		case origin == "":
			return true
		case origin == "http://"+r.Host || origin == "https://"+r.Host:
			return true
		case !cfg.CORSEnabled:
			return false
		case len(cfg.CORSOrigins) == 0:
			return true
		}
		return slices.Contains(cfg.CORSOrigins, "*") || slices.Contains(cfg.CORSOrigins, origin)
	}
}

// Start starts the event broker. Stopping it disconnects every stream client.
func (s *Server) Start() {
	go s.broker.Run(s.ctx)
	s.logger.Debug().Msg("Event stream services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// HTTPServer returns an http.Server serving Handler on the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Shutdown stops background services.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info().Msg("Shutting down event stream services")
	s.cancel()
	return nil
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
