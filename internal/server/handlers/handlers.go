// Package handlers provides the HTTP request handlers of the run server.
package handlers

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync"
	"github.com/agentstation/hubsync/cmd/application"
	"github.com/agentstation/hubsync/internal/server/events"
	"github.com/agentstation/hubsync/internal/server/sse"
	ws "github.com/agentstation/hubsync/internal/server/websocket"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	app            application.Application
	client         hubsync.Client
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger

	// background bounds cycles started with ?async=true
	background     context.Context
	startTime      time.Time
	maxIngestBytes int64
}

// Options carries the dependencies of Handlers.
type Options struct {
	App            application.Application
	Client         hubsync.Client
	Broker         *events.Broker
	WSHub          *ws.Hub
	SSEBroadcaster *sse.Broadcaster
	Upgrader       websocket.Upgrader
	Logger         *zerolog.Logger
	Background     context.Context
	StartTime      time.Time
	MaxIngestBytes int64
}

// New creates a new Handlers instance.
func New(opts Options) *Handlers {
	background := opts.Background
	if background == nil {
		background = context.Background()
	}
	return &Handlers{
		app:            opts.App,
		client:         opts.Client,
		broker:         opts.Broker,
		wsHub:          opts.WSHub,
		sseBroadcaster: opts.SSEBroadcaster,
		upgrader:       opts.Upgrader,
		logger:         opts.Logger,
		background:     background,
		startTime:      opts.StartTime,
		maxIngestBytes: opts.MaxIngestBytes,
	}
}
