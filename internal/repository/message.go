package repository

import (
	"context"
	"fmt"
	"time"

	"visionboard-chat/internal/chat"
)

// The two message tables are append-only from this service's perspective.
// visionboards, genres, genre_assignments and users are collaborator state and
// only ever read here.

func (db *Database) BoardExists(ctx context.Context, boardID string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM visionboards WHERE id = $1)`, boardID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("board lookup failed: %w", err)
	}
	return exists, nil
}

// IsBoardMember holds when userID created the board or has an accepted genre
// assignment under any of the board's genres.
func (db *Database) IsBoardMember(ctx context.Context, boardID, userID string) (bool, error) {
	var member bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM visionboards WHERE id = $1 AND created_by = $2
		) OR EXISTS (
			SELECT 1
			FROM genre_assignments ga
			JOIN genres g ON g.id = ga.genre_id
			WHERE g.visionboard_id = $1 AND ga.user_id = $2 AND ga.status = 'accepted'
		)
	`
	if err := db.Pool.QueryRow(ctx, query, boardID, userID).Scan(&member); err != nil {
		return false, fmt.Errorf("membership lookup failed: %w", err)
	}
	return member, nil
}

func (db *Database) SaveGroupMessage(ctx context.Context, boardID, senderID, message string) (*chat.GroupMessage, error) {
	msg := &chat.GroupMessage{
		VisionBoardID: boardID,
		SenderID:      senderID,
		Message:       message,
	}
	query := `
		INSERT INTO group_messages (visionboard_id, sender_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := db.Pool.QueryRow(ctx, query, boardID, senderID, message).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert group message: %w", err)
	}
	return msg, nil
}

func (db *Database) GroupMessages(ctx context.Context, boardID string, limit int, before *time.Time) ([]chat.GroupMessage, error) {
	query := `
		SELECT id, visionboard_id, sender_id, message, created_at
		FROM group_messages
		WHERE visionboard_id = $1
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	rows, err := db.Pool.Query(ctx, query, boardID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query group messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.GroupMessage
	for rows.Next() {
		var m chat.GroupMessage
		if err := rows.Scan(&m.ID, &m.VisionBoardID, &m.SenderID, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (db *Database) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user lookup failed: %w", err)
	}
	return exists, nil
}

func (db *Database) SaveDirectMessage(ctx context.Context, senderID, receiverID, message string) (*chat.DirectMessage, error) {
	msg := &chat.DirectMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    message,
	}
	query := `
		INSERT INTO messages (sender_id, receiver_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := db.Pool.QueryRow(ctx, query, senderID, receiverID, message).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert direct message: %w", err)
	}
	return msg, nil
}

func (db *Database) DirectMessages(ctx context.Context, userID, otherID string, limit int, before *time.Time) ([]chat.DirectMessage, error) {
	query := `
		SELECT id, sender_id, receiver_id, message, created_at
		FROM messages
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	rows, err := db.Pool.Query(ctx, query, userID, otherID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query direct messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.DirectMessage
	for rows.Next() {
		var m chat.DirectMessage
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan direct message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ConversationPartners lists everyone userID has exchanged direct messages
// with, most recent conversation first.
func (db *Database) ConversationPartners(ctx context.Context, userID string) ([]chat.Partner, error) {
	query := `
		SELECT u.id, u.name, COALESCE(u.profile_image_url, ''), MAX(m.created_at) AS last_message_at
		FROM messages m
		JOIN users u ON u.id = CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		GROUP BY u.id, u.name, u.profile_image_url
		ORDER BY last_message_at DESC
	`
	rows, err := db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation partners: %w", err)
	}
	defer rows.Close()

	var partners []chat.Partner
	for rows.Next() {
		var p chat.Partner
		if err := rows.Scan(&p.UserID, &p.Name, &p.AvatarURL, &p.LastMessageAt); err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}
