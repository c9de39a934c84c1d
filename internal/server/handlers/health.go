package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/agentstation/hubsync/internal/server/response"
)

// HandleHealth handles GET /health (liveness probe).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "hubsync",
		"version": h.app.Version(),
	})
}

// HandleReady handles GET /api/v1/ready. The server is ready once the
// correlation store answers.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	store, err := h.app.Store()
	if err != nil {
		response.ServiceUnavailable(w, "Correlation store not available")
		return
	}
	orgs := h.client.Organizations()
	if len(orgs) > 0 {
		if _, err := store.Recent(r.Context(), orgs[0].ID, 1); err != nil {
			h.logger.Warn().Err(err).Msg("Readiness probe failed")
			response.ServiceUnavailable(w, "Correlation store not reachable")
			return
		}
	}

	response.OK(w, map[string]any{
		"status":            "ready",
		"organizations":     len(orgs),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response.OK(w, map[string]any{
		"runtime": map[string]any{
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"memory_mb":      memStats.Alloc / 1024 / 1024,
		},
		"organizations": len(h.client.Organizations()),
		"events": map[string]any{
			"published_total": h.broker.EventsPublished(),
			"dropped_total":   h.broker.EventsDropped(),
		},
		"realtime": map[string]any{
			"websocket_clients": h.wsHub.ClientCount(),
			"sse_clients":       h.sseBroadcaster.ClientCount(),
		},
	})
}
