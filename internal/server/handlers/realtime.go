package handlers

import (
	"net/http"
)

// HandleWebSocket streams events over a WebSocket at /api/v1/events/ws.
// ?organization=<id> narrows the stream to one organization.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	h.wsHub.Serve(conn, r.URL.Query().Get("organization"))
}

// HandleSSE streams events as Server-Sent Events at /api/v1/events/stream.
// ?organization=<id> narrows the stream to one organization.
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
