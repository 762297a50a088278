package handler

import (
	"encoding/json"
	"net/http"

	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/service"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
)

// SettingsHandler handles generation preference endpoints.
type SettingsHandler struct {
	sessions *service.SessionService
	logger   *logger.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(sessions *service.SessionService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		sessions: sessions,
		logger:   log,
	}
}

// Get handles GET /api/v1/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Settings())
}

// Patch handles PATCH /api/v1/settings
// The body is a merge-patch: absent fields keep their current values.
func (h *SettingsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch model.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings := h.sessions.UpdateSettings(patch)
	writeJSON(w, http.StatusOK, settings)
}
