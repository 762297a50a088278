package handler

import (
	"io"
	"net/http"

	"github.com/clearway-ai/chat-gateway/internal/llm"
	"github.com/clearway-ai/chat-gateway/internal/middleware"
	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/service"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
)

// maxUploadBytes bounds multipart uploads, matching the upstream 10MB limit.
const maxUploadBytes = 10 << 20

// AnalyzeHandler handles document and image analysis endpoints.
type AnalyzeHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewAnalyzeHandler creates a new analysis handler.
func NewAnalyzeHandler(chat *service.ChatService, log *logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		chat:   chat,
		logger: log,
	}
}

func readUpload(r *http.Request) (*llm.AnalysisRequest, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, err
	}

	return &llm.AnalysisRequest{
		Data:        data,
		Instruction: r.FormValue("text"),
	}, nil
}

// Document handles POST /api/v1/files
func (h *AnalyzeHandler) Document(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}

	analysis, err := h.chat.AnalyzeDocument(ctx, middleware.GetProviderKey(ctx), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.AnalysisResponse{Analysis: analysis})
}

// PDF handles POST /api/v1/files/pdf
func (h *AnalyzeHandler) PDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	if !llm.IsPDF(req.Data) {
		writeError(w, http.StatusBadRequest, "file must be a PDF")
		return
	}

	analysis, err := h.chat.AnalyzePDF(ctx, middleware.GetProviderKey(ctx), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.AnalysisResponse{Analysis: analysis})
}

// Image handles POST /api/v1/images/analyze
func (h *AnalyzeHandler) Image(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}

	analysis, err := h.chat.AnalyzeImage(ctx, middleware.GetProviderKey(ctx), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.AnalysisResponse{Analysis: analysis})
}
