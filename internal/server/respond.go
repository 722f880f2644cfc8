package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"visionboard-chat/internal/chat"
	"visionboard-chat/internal/logger"
)

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error(logger.TagHTTP, "Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeServiceError maps the chat error taxonomy to stable status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrNotMember):
		writeError(w, http.StatusForbidden, "not a member of this room")
	case errors.Is(err, chat.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message must not be empty")
	default:
		logger.Error(logger.TagHTTP, "Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
