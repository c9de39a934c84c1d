package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/hubsync/internal/server/handlers"
	"github.com/agentstation/hubsync/internal/server/middleware"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(handlers.Options{
		App:            s.app,
		Client:         s.client,
		Broker:         s.broker,
		WSHub:          s.wsHub,
		SSEBroadcaster: s.sseBroadcaster,
		Upgrader:       s.upgrader,
		Logger:         s.logger,
		Background:     s.ctx,
		StartTime:      s.startTime,
		MaxIngestBytes: s.config.MaxIngestBytes,
	})

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)
	mux.HandleFunc("GET "+prefix+"/stats", h.HandleStats)

	// Organizations
	mux.HandleFunc("GET "+prefix+"/organizations", h.HandleListOrganizations)
	mux.HandleFunc("POST "+prefix+"/organizations/{org}/sync", h.HandleSync)
	mux.HandleFunc("POST "+prefix+"/organizations/{org}/entities/{entity}/records", h.HandleIngest)
	mux.HandleFunc("GET "+prefix+"/organizations/{org}/correlations", h.HandleListCorrelations)
	mux.HandleFunc("GET "+prefix+"/organizations/{org}/synchronizations", h.HandleListSynchronizations)

	// Real-time endpoints
	mux.HandleFunc("GET "+prefix+"/events/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+prefix+"/events/stream", h.HandleSSE)

	// Metrics endpoint (optional)
	if s.config.MetricsEnabled {
		registry := s.app.Registry()
		// process and runtime collectors may already be registered by the caller
		_ = registry.Register(collectors.NewGoCollector())
		_ = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	// Rate limiting (if enabled)
	if cfg.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(s.ctx, cfg.RateLimit, s.logger)
		handler = middleware.RateLimit(rateLimiter)(handler)
	}

	// Authentication (if enabled)
	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig()
		authConfig.Enabled = true
		authConfig.APIKey = cfg.APIKey
		authConfig.HeaderName = cfg.AuthHeader
		authConfig.PublicPaths = []string{"/health", "/metrics", cfg.PathPrefix + "/health", cfg.PathPrefix + "/ready"}
		authConfig.StreamPaths = []string{cfg.PathPrefix + "/events/ws", cfg.PathPrefix + "/events/stream"}
		handler = middleware.Auth(authConfig, s.logger)(handler)
	}

	// CORS (if enabled)
	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
			corsConfig.AllowAll = false
		} else {
			corsConfig.AllowAll = true
		}
		handler = middleware.CORS(corsConfig)(handler)
	}

	// Logging and recovery (always enabled)
	return middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
	)(handler)
}
