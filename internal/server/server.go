package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"visionboard-chat/internal/auth"
	"visionboard-chat/internal/chat"
	"visionboard-chat/internal/logger"
)

// HealthCheck pings one downstream dependency.
type HealthCheck func(ctx context.Context) error

// Server exposes the realtime endpoints and the REST mirror on one listener.
type Server struct {
	addr     string
	verifier *auth.Verifier
	svc      *chat.Service
	hub      *chat.Hub
	checks   map[string]HealthCheck

	upgrader websocket.Upgrader
	validate *validator.Validate
	httpSrv  *http.Server
}

func New(addr string, verifier *auth.Verifier, svc *chat.Service, hub *chat.Hub, checks map[string]HealthCheck) *Server {
	s := &Server{
		addr:     addr,
		verifier: verifier,
		svc:      svc,
		hub:      hub,
		checks:   checks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.New(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/visionboard/{visionboard_id}/group-chat", s.handleGroupChatWS)
	mux.HandleFunc("GET /ws/message/{other_user_id}", s.handleDirectChatWS)

	mux.HandleFunc("POST /v1/visionboard/{visionboard_id}/group-chat/message", s.requireAuth(s.handlePostGroupMessage))
	mux.HandleFunc("GET /v1/visionboard/{visionboard_id}/group-chat/messages", s.requireAuth(s.handleGetGroupMessages))
	mux.HandleFunc("GET /v1/message/users", s.requireAuth(s.handleGetMessageUsers))
	mux.HandleFunc("POST /v1/message/{user_id}", s.requireAuth(s.handlePostDirectMessage))
	mux.HandleFunc("GET /v1/message/{user_id}", s.requireAuth(s.handleGetDirectMessages))

	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	logger.Info(logger.TagHTTP, "Chat server listening on %s", s.addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// handleGroupChatWS joins the caller to a vision board's group room. The
// bearer credential rides in the token query param: this is an upgrade
// request, clients cannot set headers on it.
func (s *Server) handleGroupChatWS(w http.ResponseWriter, r *http.Request) {
	boardID := r.PathValue("visionboard_id")
	if _, err := uuid.Parse(boardID); err != nil {
		http.Error(w, "unknown visionboard", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(logger.TagSession, "Upgrade failed: %v", err)
		return
	}
	p := newPeer(conn)
	defer conn.Close()

	claims, err := s.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		logger.Warn(logger.TagAuth, "Group chat auth failed for board %s: %v", boardID, err)
		p.closeWith(websocket.ClosePolicyViolation, "authentication failed")
		return
	}
	userID := claims.UserID()

	sess := &wsSession{
		userID: userID,
		room:   boardID,
		topic:  chat.GroupTopic(boardID),
		peer:   p,
		hub:    s.hub,
		svc:    s.svc,
		persist: func(ctx context.Context, body string) error {
			_, err := s.svc.SendGroupMessage(ctx, boardID, userID, body)
			return err
		},
	}
	sess.run(r.Context())
}

// handleDirectChatWS joins the caller to the direct room shared with
// other_user_id. Both parties compute the same sorted room key.
func (s *Server) handleDirectChatWS(w http.ResponseWriter, r *http.Request) {
	otherID := r.PathValue("other_user_id")
	if _, err := uuid.Parse(otherID); err != nil {
		http.Error(w, "unknown user", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(logger.TagSession, "Upgrade failed: %v", err)
		return
	}
	p := newPeer(conn)
	defer conn.Close()

	claims, err := s.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		logger.Warn(logger.TagAuth, "Direct chat auth failed: %v", err)
		p.closeWith(websocket.ClosePolicyViolation, "authentication failed")
		return
	}
	userID := claims.UserID()
	room := chat.DirectRoomKey(userID, otherID)

	sess := &wsSession{
		userID: userID,
		room:   room,
		topic:  chat.DirectTopic(room),
		peer:   p,
		hub:    s.hub,
		svc:    s.svc,
		persist: func(ctx context.Context, body string) error {
			_, err := s.svc.SendDirectMessage(ctx, userID, otherID, body)
			return err
		},
	}
	sess.run(r.Context())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := make(map[string]string, len(s.checks))
	healthy := true
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{"healthy": healthy, "checks": status})
}
