// Package websocket streams run server events to WebSocket clients.
//
// Clients only listen: inbound frames are read to process pings and closes
// and otherwise discarded. A client opened with ?organization=<id> only
// receives that organization's events and the events not tied to any
// organization.
package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync/internal/server/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	queueSize      = 64
)

// Hub is the WebSocket subscriber of the event broker.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
	logger  *zerolog.Logger
}

// NewHub returns a hub with no clients.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Client is one WebSocket connection.
type Client struct {
	id           string
	organization string
	hub          *Hub
	conn         *websocket.Conn
	queue        chan events.Event
}

// ID returns the client id sent in its client.connected event.
func (c *Client) ID() string { return c.id }

// Serve registers conn and starts its pumps. The client's first message is
// client.connected, carrying its id.
func (h *Hub) Serve(conn *websocket.Conn, organization string) *Client {
	c := &Client{
		id:           uuid.NewString(),
		organization: organization,
		hub:          h,
		conn:         conn,
		queue:        make(chan events.Event, queueSize),
	}
	c.queue <- events.Event{
		Type:         events.ClientConnected,
		Organization: organization,
		Timestamp:    time.Now(),
		Data:         map[string]any{"client_id": c.id},
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return c
	}
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().
		Str("client_id", c.id).
		Str("organization", organization).
		Int("total_clients", total).
		Msg("WebSocket client connected")

	go c.writePump()
	go c.readPump()
	return c
}

// Send queues event for every client following its organization. A client
// too slow to keep up is disconnected.
func (h *Hub) Send(event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		if !event.For(c.organization) {
			continue
		}
		select {
		case c.queue <- event:
		default:
			h.logger.Warn().Str("client_id", id).Msg("WebSocket client too slow, disconnecting")
			close(c.queue)
			delete(h.clients, id)
		}
	}
	return nil
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.queue)
		delete(h.clients, id)
	}
	h.closed = true
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		close(c.queue)
		delete(h.clients, c.id)
		h.logger.Info().
			Str("client_id", c.id).
			Int("total_clients", len(h.clients)).
			Msg("WebSocket client disconnected")
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Str("client_id", c.id).Msg("WebSocket read error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, open := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
