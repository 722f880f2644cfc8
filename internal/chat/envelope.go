package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the frame broadcast to every subscriber of a room topic.
// Message carries the raw inbound frame text, not just the extracted body, so
// client-side extras (typing flags and the like) survive the round trip.
type Envelope struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	AvatarURL string    `json:"avatar_url"`
	Timestamp time.Time `json:"timestamp"`
}

// Encode validates and marshals the envelope for the wire.
func (e Envelope) Encode() ([]byte, error) {
	if e.UserID == "" {
		return nil, fmt.Errorf("envelope missing user_id")
	}
	if e.Timestamp.IsZero() {
		return nil, fmt.Errorf("envelope missing timestamp")
	}
	return json.Marshal(e)
}

// DecodeEnvelope parses a broadcast frame back into an Envelope.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}

// InboundFrame is what clients send over the socket. Only the message field is
// interpreted; anything else rides along inside the raw frame.
type InboundFrame struct {
	Message string `json:"message"`
}
