// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearway-ai/chat-gateway/internal/middleware"
	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/service"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	chat     *service.ChatService
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *service.SessionService, chat *service.ChatService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		chat:     chat,
		logger:   log,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.sessions.Create(r.Context(), req.Title)
	writeJSON(w, http.StatusCreated, sess)
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, activeID := h.sessions.List()
	writeJSON(w, http.StatusOK, &model.ListSessionsResponse{
		Sessions: sessions,
		ActiveID: activeID,
		Total:    len(sessions),
	})
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// Update handles PUT /api/v1/sessions/:id
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.UpdateTitle(r.Context(), sessionID, req.Title)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// Delete handles DELETE /api/v1/sessions/:id
// Deletion is idempotent; deleting an unknown session still returns 204.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Abort in-flight completions before the session goes away.
	h.chat.CancelSession(sessionID)
	h.sessions.Delete(r.Context(), sessionID)

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /api/v1/sessions
func (h *SessionHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	h.chat.CancelAll()
	h.sessions.DeleteAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /api/v1/sessions/:id/activate
func (h *SessionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessions.SetActive(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Messages handles GET /api/v1/sessions/:id/messages
func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		Messages: sess.Messages,
		Total:    len(sess.Messages),
	})
}
