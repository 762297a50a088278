package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearway-ai/chat-gateway/internal/llm"
	"github.com/clearway-ai/chat-gateway/internal/service"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps classified gateway and service errors onto HTTP
// statuses: credential failures distinct from upstream failures distinct
// from unreadable uploads.
func writeServiceError(w http.ResponseWriter, err error) {
	var gwErr *llm.Error
	if errors.As(err, &gwErr) {
		writeError(w, gwErr.HTTPStatus(), gwErr.Message)
		return
	}
	if errors.Is(err, service.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if errors.Is(err, service.ErrMessageNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
