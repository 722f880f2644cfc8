package chat

import "errors"

var (
	// ErrNotMember means the sender is neither the board creator nor holds an
	// accepted assignment on the board, or is not a party of the direct room.
	ErrNotMember = errors.New("not a member of this room")

	// ErrNotFound means the room or target user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyMessage means a send was attempted with no message body.
	ErrEmptyMessage = errors.New("empty message")
)
