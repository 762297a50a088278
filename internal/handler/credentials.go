package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/service"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
)

// CredentialHandler manages the stored provider credential. The key itself is
// write-only: status reports presence, never the value.
type CredentialHandler struct {
	sessions *service.SessionService
	logger   *logger.Logger
}

// NewCredentialHandler creates a new credential handler.
func NewCredentialHandler(sessions *service.SessionService, log *logger.Logger) *CredentialHandler {
	return &CredentialHandler{
		sessions: sessions,
		logger:   log,
	}
}

// Status handles GET /api/v1/credentials
func (h *CredentialHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &model.CredentialStatusResponse{
		Configured: h.sessions.APIKey() != "",
	})
}

// Put handles PUT /api/v1/credentials
func (h *CredentialHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req model.CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, "api_key cannot be empty")
		return
	}

	if err := h.sessions.SaveAPIKey(key); err != nil {
		h.logger.Errorw("failed to store credential", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}

	writeJSON(w, http.StatusOK, &model.CredentialStatusResponse{Configured: true})
}

// Delete handles DELETE /api/v1/credentials
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.RemoveAPIKey(); err != nil {
		h.logger.Errorw("failed to remove credential", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove credential")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
