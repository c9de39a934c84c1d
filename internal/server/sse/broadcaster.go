// Package sse streams run server events as Server-Sent Events.
//
// Each connection is a client with its own id. A client opened with
// ?organization=<id> only receives that organization's events and the
// events not tied to any organization.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync/internal/server/events"
)

// queueSize bounds the events waiting for one client.
const queueSize = 64

// DefaultHeartbeat is the interval between keep-alive comments.
const DefaultHeartbeat = 15 * time.Second

type client struct {
	id           string
	organization string
	queue        chan events.Event
}

// Broadcaster is the SSE subscriber of the event broker.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*client
	closed  bool

	heartbeat time.Duration
	logger    *zerolog.Logger
}

// NewBroadcaster returns a broadcaster with no clients.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients:   make(map[string]*client),
		heartbeat: DefaultHeartbeat,
		logger:    logger,
	}
}

// Send queues event for every client following its organization. A client
// whose queue is full misses the event.
func (b *Broadcaster) Send(event events.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		if !event.For(c.organization) {
			continue
		}
		select {
		case c.queue <- event:
		default:
			b.logger.Warn().
				Str("client_id", c.id).
				Str("event_type", string(event.Type)).
				Msg("SSE client queue full, event skipped")
		}
	}
	return nil
}

// Close ends every stream and refuses new ones.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, c := range b.clients {
		close(c.queue)
		delete(b.clients, id)
	}
	b.closed = true
	return nil
}

// ClientCount returns the number of open streams.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) add(c *client) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.clients[c.id] = c
	return true
}

func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c.id]; ok {
		close(c.queue)
		delete(b.clients, c.id)
	}
}

// ServeHTTP streams events until the request ends or the broadcaster
// closes. The first event is client.connected, carrying the client id.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	c := &client{
		id:           uuid.NewString(),
		organization: r.URL.Query().Get("organization"),
		queue:        make(chan events.Event, queueSize),
	}
	if !b.add(c) {
		http.Error(w, "Event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer b.remove(c)

	log := b.logger.With().Str("client_id", c.id).Str("organization", c.organization).Logger()
	log.Info().Int("total_clients", b.ClientCount()).Msg("SSE client connected")
	defer log.Info().Msg("SSE client disconnected")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := write(w, events.Event{
		Type:         events.ClientConnected,
		Organization: c.organization,
		Timestamp:    time.Now(),
		Data:         map[string]any{"client_id": c.id},
	}); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case event, open := <-c.queue:
			if !open {
				return
			}
			if err := write(w, event); err != nil {
				log.Debug().Err(err).Msg("SSE write failed")
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
		flusher.Flush()
	}
}

// write renders one event frame: its type, an id from its timestamp and the
// whole event as JSON data.
func write(w http.ResponseWriter, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n",
		event.Type, strconv.FormatInt(event.Timestamp.UnixNano(), 10), data)
	return err
}
