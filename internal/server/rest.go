package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"visionboard-chat/internal/chat"
	"visionboard-chat/internal/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

// requireAuth extracts and verifies the bearer token on REST requests.
func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.verifier.Verify(token)
		if err != nil {
			logger.Warn(logger.TagAuth, "Rejected REST request: %v", err)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r, claims.UserID())
	}
}

type groupMessagePayload struct {
	Message string `json:"message" validate:"required"`
}

func (s *Server) handlePostGroupMessage(w http.ResponseWriter, r *http.Request, userID string) {
	boardID := r.PathValue("visionboard_id")
	if _, err := uuid.Parse(boardID); err != nil {
		writeError(w, http.StatusNotFound, "unknown visionboard")
		return
	}

	var payload groupMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	msg, err := s.svc.SendGroupMessage(r.Context(), boardID, userID, payload.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	msg.AvatarURL = s.svc.Avatar(r.Context(), userID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Message sent",
		"group_message": msg,
	})
}

func (s *Server) handleGetGroupMessages(w http.ResponseWriter, r *http.Request, userID string) {
	boardID := r.PathValue("visionboard_id")
	if _, err := uuid.Parse(boardID); err != nil {
		writeError(w, http.StatusNotFound, "unknown visionboard")
		return
	}

	limit, before, err := paginationParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := s.svc.GroupHistory(r.Context(), boardID, userID, limit, before)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []chat.GroupMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type directMessagePayload struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
	Message    string `json:"message" validate:"required"`
}

func (s *Server) handlePostDirectMessage(w http.ResponseWriter, r *http.Request, userID string) {
	urlUserID := r.PathValue("user_id")
	if _, err := uuid.Parse(urlUserID); err != nil {
		writeError(w, http.StatusNotFound, "unknown user")
		return
	}

	var payload directMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "receiver_id and message are required")
		return
	}

	// The caller must be one of the two parties of the conversation.
	if userID != urlUserID && userID != payload.ReceiverID {
		writeError(w, http.StatusForbidden, "not a participant of this conversation")
		return
	}

	receiverID := payload.ReceiverID
	if receiverID == userID {
		receiverID = urlUserID
	}

	if _, err := s.svc.SendDirectMessage(r.Context(), userID, receiverID, payload.Message); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message sent"})
}

func (s *Server) handleGetDirectMessages(w http.ResponseWriter, r *http.Request, userID string) {
	otherID := r.PathValue("user_id")
	if _, err := uuid.Parse(otherID); err != nil {
		writeError(w, http.StatusNotFound, "unknown user")
		return
	}

	limit, before, err := paginationParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := s.svc.DirectHistory(r.Context(), userID, otherID, limit, before)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []chat.DirectMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (s *Server) handleGetMessageUsers(w http.ResponseWriter, r *http.Request, userID string) {
	partners, err := s.svc.Partners(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if partners == nil {
		partners = []chat.Partner{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": partners})
}

// paginationParams reads the limit and before cursor shared by the history
// endpoints. The cursor is exclusive: created_at strictly older than before.
func paginationParams(r *http.Request) (int, *time.Time, error) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return 0, nil, errInvalidLimit
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return 0, nil, errInvalidBefore
		}
		before = &t
	}
	return limit, before, nil
}

var (
	errInvalidLimit  = &paramError{"limit must be a positive integer"}
	errInvalidBefore = &paramError{"before must be an RFC3339 timestamp"}
)

type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }
