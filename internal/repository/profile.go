package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"visionboard-chat/internal/chat"
)

// AvatarURL resolves a user's display avatar. A missing user or NULL avatar
// comes back as chat.ErrNotFound; callers treat enrichment as best-effort.
func (db *Database) AvatarURL(ctx context.Context, userID string) (string, error) {
	var url *string
	err := db.Pool.QueryRow(ctx,
		`SELECT profile_image_url FROM users WHERE id = $1`, userID,
	).Scan(&url)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", chat.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("avatar lookup failed: %w", err)
	}
	if url == nil || *url == "" {
		return "", chat.ErrNotFound
	}
	return *url, nil
}
