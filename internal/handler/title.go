package handler

import (
	"encoding/json"
	"net/http"

	"github.com/clearway-ai/chat-gateway/internal/middleware"
	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/service"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
)

// TitleHandler handles the session title generation endpoint.
type TitleHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewTitleHandler creates a new title handler.
func NewTitleHandler(chat *service.ChatService, log *logger.Logger) *TitleHandler {
	return &TitleHandler{
		chat:   chat,
		logger: log,
	}
}

// Generate handles POST /api/v1/titles
func (h *TitleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.TitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidatePrompt(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	title, err := h.chat.GenerateTitle(ctx, middleware.GetProviderKey(ctx), req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.TitleResponse{Title: title})
}
