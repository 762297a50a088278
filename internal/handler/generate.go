package handler

import (
	"encoding/json"
	"net/http"

	"github.com/clearway-ai/chat-gateway/internal/llm"
	"github.com/clearway-ai/chat-gateway/internal/middleware"
	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/service"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
)

// Image size and quality ride on headers, out of band from the prompt body.
// The Replicate token does too, since it is a different credential from the
// chat provider key.
const (
	imageSizeHeader    = "X-Image-Size"
	imageQualityHeader = "X-Image-Quality"
	replicateKeyHeader = "X-Replicate-Key"
)

// GenerateHandler handles image generation endpoints.
type GenerateHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewGenerateHandler creates a new image generation handler.
func NewGenerateHandler(chat *service.ChatService, log *logger.Logger) *GenerateHandler {
	return &GenerateHandler{
		chat:   chat,
		logger: log,
	}
}

// Image handles POST /api/v1/images
func (h *GenerateHandler) Image(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.chat.GenerateImage(ctx, middleware.GetProviderKey(ctx), &llm.ImageRequest{
		Prompt:  req.Prompt,
		Size:    r.Header.Get(imageSizeHeader),
		Quality: r.Header.Get(imageQualityHeader),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ImageResponse{
		ImageURL:      resp.URL,
		RevisedPrompt: resp.RevisedPrompt,
	})
}

// ReplicateImage handles POST /api/v1/images/replicate
func (h *GenerateHandler) ReplicateImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.chat.GenerateReplicateImage(ctx, r.Header.Get(replicateKeyHeader), &llm.ImageRequest{
		Prompt: req.Prompt,
		Size:   r.Header.Get(imageSizeHeader),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ImageResponse{
		ImageURL:      resp.URL,
		RevisedPrompt: resp.RevisedPrompt,
	})
}
