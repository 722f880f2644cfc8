package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"visionboard-chat/internal/logger"
	"visionboard-chat/internal/mq"
)

// Service drives the message lifecycle shared by the socket and REST paths:
// authorize, persist, enrich, publish. Persistence always precedes publish, so
// anything observed on a socket can also be found in history.
type Service struct {
	store    MessageStore
	profiles ProfileDirectory
	producer mq.Producer
}

func NewService(store MessageStore, profiles ProfileDirectory, producer mq.Producer) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		producer: producer,
	}
}

// SendGroupMessage authorizes and persists one group chat message. Membership
// is evaluated at send time, every time: assignment status is externally
// mutable, so a check done at connect would go stale.
func (s *Service) SendGroupMessage(ctx context.Context, boardID, senderID, message string) (*GroupMessage, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}

	exists, err := s.store.BoardExists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("visionboard %s: %w", boardID, ErrNotFound)
	}

	member, err := s.store.IsBoardMember(ctx, boardID, senderID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("user %s on visionboard %s: %w", senderID, boardID, ErrNotMember)
	}

	return s.store.SaveGroupMessage(ctx, boardID, senderID, message)
}

// SendDirectMessage persists one direct message. Identity is fixed by the room
// key, so there is no per-message membership check beyond the pair itself.
func (s *Service) SendDirectMessage(ctx context.Context, senderID, receiverID, message string) (*DirectMessage, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("sender and receiver are the same user: %w", ErrNotMember)
	}

	exists, err := s.store.UserExists(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", receiverID, ErrNotFound)
	}

	return s.store.SaveDirectMessage(ctx, senderID, receiverID, message)
}

// GroupHistory returns the newest messages of a board, created_at descending,
// optionally older than the before cursor. Callers must be board members.
func (s *Service) GroupHistory(ctx context.Context, boardID, userID string, limit int, before *time.Time) ([]GroupMessage, error) {
	exists, err := s.store.BoardExists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("visionboard %s: %w", boardID, ErrNotFound)
	}

	member, err := s.store.IsBoardMember(ctx, boardID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("user %s on visionboard %s: %w", userID, boardID, ErrNotMember)
	}

	messages, err := s.store.GroupMessages(ctx, boardID, limit, before)
	if err != nil {
		return nil, err
	}

	avatars := s.avatarsFor(ctx, lo.Map(messages, func(m GroupMessage, _ int) string { return m.SenderID }))
	for i := range messages {
		messages[i].AvatarURL = avatars[messages[i].SenderID]
	}
	return messages, nil
}

// DirectHistory returns the newest messages of the direct room between userID
// and otherID.
func (s *Service) DirectHistory(ctx context.Context, userID, otherID string, limit int, before *time.Time) ([]DirectMessage, error) {
	messages, err := s.store.DirectMessages(ctx, userID, otherID, limit, before)
	if err != nil {
		return nil, err
	}

	avatars := s.avatarsFor(ctx, lo.Map(messages, func(m DirectMessage, _ int) string { return m.SenderID }))
	for i := range messages {
		messages[i].AvatarURL = avatars[messages[i].SenderID]
	}
	return messages, nil
}

// Partners lists the caller's direct-message counterparties.
func (s *Service) Partners(ctx context.Context, userID string) ([]Partner, error) {
	return s.store.ConversationPartners(ctx, userID)
}

// Avatar resolves a sender's avatar, falling back to the empty URL. Enrichment
// never blocks delivery.
func (s *Service) Avatar(ctx context.Context, userID string) string {
	url, err := s.profiles.AvatarURL(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn(logger.TagStore, "Avatar lookup failed for user %s: %v", userID, err)
		}
		return ""
	}
	return url
}

// BroadcastFrame wraps the raw inbound frame in a broadcast envelope and
// publishes it to the room topic. Called only after any persistence succeeded.
func (s *Service) BroadcastFrame(ctx context.Context, topic, senderID, rawFrame string) error {
	env := Envelope{
		UserID:    senderID,
		Message:   rawFrame,
		AvatarURL: s.Avatar(ctx, senderID),
		Timestamp: time.Now().UTC(),
	}
	payload, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode broadcast envelope: %w", err)
	}
	if err := s.producer.Publish(topic, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// avatarsFor resolves avatars once per distinct sender.
func (s *Service) avatarsFor(ctx context.Context, senderIDs []string) map[string]string {
	avatars := make(map[string]string)
	for _, id := range lo.Uniq(senderIDs) {
		avatars[id] = s.Avatar(ctx, id)
	}
	return avatars
}
