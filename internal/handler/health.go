package handler

import (
	"net/http"

	"github.com/clearway-ai/chat-gateway/internal/events"
	"github.com/clearway-ai/chat-gateway/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store       *store.Store
	eventClient *events.Client
}

// NewHealthHandler creates a new health handler. eventClient may be nil when
// event publishing is disabled.
func NewHealthHandler(st *store.Store, eventClient *events.Client) *HealthHandler {
	return &HealthHandler{
		store:       st,
		eventClient: eventClient,
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
	if err := h.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "store unavailable",
		})
		return
	}

	if h.eventClient != nil && !h.eventClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
