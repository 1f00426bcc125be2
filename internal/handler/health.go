package handler

import (
	"net/http"

	"github.com/convergo/drafting-platform/internal/events"
	"github.com/convergo/drafting-platform/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store  store.Store
	events *events.Publisher
}

// NewHealthHandler creates a new health handler. events may be nil when
// lifecycle events are not configured.
func NewHealthHandler(st store.Store, ev *events.Publisher) *HealthHandler {
	return &HealthHandler{
		store:  st,
		events: ev,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "storage not reachable",
		})
		return
	}

	resp := map[string]string{
		"status": "ready",
	}
	// Events are best-effort; a dropped broker connection is surfaced here
	// without failing readiness.
	if h.events != nil {
		resp["events"] = "disconnected"
		if h.events.IsConnected() {
			resp["events"] = "connected"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
