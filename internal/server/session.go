package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"

	"visionboard-chat/internal/chat"
	"visionboard-chat/internal/logger"
)

// wsSession drives one authenticated client connection: join the room, loop
// over inbound frames, and clean up exactly once on any exit path.
type wsSession struct {
	userID string
	room   string
	topic  string
	peer   *peer
	hub    *chat.Hub
	svc    *chat.Service

	// persist stores one message body for this session's room variant. Group
	// sessions re-check membership inside; direct sessions rely on the pair
	// being fixed by the room key.
	persist func(ctx context.Context, body string) error
}

func (s *wsSession) run(ctx context.Context) {
	s.hub.Join(s.room, s.topic, s.peer)
	logger.Info(logger.TagSession, "User %s joined room %s", s.userID, s.room)

	defer func() {
		s.hub.Leave(s.room, s.peer)
		logger.Info(logger.TagSession, "User %s left room %s", s.userID, s.room)
	}()

	for {
		_, data, err := s.peer.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn(logger.TagSession, "Read error for user %s in room %s: %v", s.userID, s.room, err)
			}
			return
		}

		// One malformed frame never terminates the connection.
		var frame chat.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warn(logger.TagSession, "Malformed frame from user %s in room %s: %v", s.userID, s.room, err)
			continue
		}

		if frame.Message != "" {
			if err := s.persist(ctx, frame.Message); err != nil {
				if errors.Is(err, chat.ErrNotMember) || errors.Is(err, chat.ErrNotFound) {
					logger.Warn(logger.TagSession, "User %s rejected in room %s (stage: authorize): %v", s.userID, s.room, err)
					s.peer.closeWith(websocket.ClosePolicyViolation, "not a room member")
					return
				}
				// At-most-once: the message is dropped, the session lives on.
				logger.Error(logger.TagSession, "Persist failed for user %s in room %s (stage: persist): %v", s.userID, s.room, err)
				continue
			}
		}

		// The envelope echoes the raw frame so client-side extras (typing
		// indicators and the like) reach the other members too.
		if err := s.svc.BroadcastFrame(ctx, s.topic, s.userID, string(data)); err != nil {
			logger.Error(logger.TagSession, "Publish failed for user %s in room %s (stage: publish): %v", s.userID, s.room, err)
		}
	}
}
