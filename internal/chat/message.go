package chat

import (
	"context"
	"time"
)

// GroupMessage is one persisted message in a vision board's group chat.
// Messages are immutable once written; created_at is the ordering key.
type GroupMessage struct {
	ID            string    `json:"id"`
	VisionBoardID string    `json:"visionboard_id"`
	SenderID      string    `json:"sender_id"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
	AvatarURL     string    `json:"avatar_url"`
}

// DirectMessage is one persisted message between two users.
type DirectMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	AvatarURL  string    `json:"avatar_url"`
}

// Partner is one conversation counterparty of a user, newest conversation first.
type Partner struct {
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	AvatarURL     string    `json:"avatar_url"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// MessageStore is the durable side of the chat core. Implemented by the
// postgres repository; faked in tests.
type MessageStore interface {
	BoardExists(ctx context.Context, boardID string) (bool, error)
	// IsBoardMember reports whether userID is the board creator or holds an
	// accepted genre assignment on the board. Evaluated per call, never cached:
	// assignment status changes outside this service.
	IsBoardMember(ctx context.Context, boardID, userID string) (bool, error)
	SaveGroupMessage(ctx context.Context, boardID, senderID, message string) (*GroupMessage, error)
	GroupMessages(ctx context.Context, boardID string, limit int, before *time.Time) ([]GroupMessage, error)

	UserExists(ctx context.Context, userID string) (bool, error)
	SaveDirectMessage(ctx context.Context, senderID, receiverID, message string) (*DirectMessage, error)
	DirectMessages(ctx context.Context, userID, otherID string, limit int, before *time.Time) ([]DirectMessage, error)
	ConversationPartners(ctx context.Context, userID string) ([]Partner, error)
}

// ProfileDirectory resolves a user id to a display avatar. Lookups are
// best-effort; callers substitute a fallback on error.
type ProfileDirectory interface {
	AvatarURL(ctx context.Context, userID string) (string, error)
}
