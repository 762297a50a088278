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

// ChatHandler handles completion endpoints.
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: log,
	}
}

// Send handles POST /api/v1/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chat.SendMessage(ctx, middleware.GetProviderKey(ctx), req.Prompt, req.Settings)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ChatResponse{
		Content: msg.Content,
		Message: &msg,
	})
}

// Edit handles PUT /api/v1/chat/:messageID
// Edits a past user turn: everything after it is discarded and the reply is
// regenerated against the truncated context.
func (h *ChatHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	messageID := chi.URLParam(r, "messageID")

	if err := middleware.ValidateMessageID(messageID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chat.EditMessage(ctx, middleware.GetProviderKey(ctx), messageID, req.Prompt, nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ChatResponse{
		Content: msg.Content,
		Message: &msg,
	})
}
