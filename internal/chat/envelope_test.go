package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvelope_EncodeDecode(t *testing.T) {
	req := require.New(t)
	sent := Envelope{
		UserID:    "user-1",
		Message:   `{"message":"hi","typing":false}`,
		AvatarURL: "https://cdn.example.com/u1.png",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	payload, err := sent.Encode()
	req.NoError(err)

	got, err := DecodeEnvelope(payload)
	req.NoError(err)
	req.Equal(sent, got)
}

func TestEnvelope_EncodeRejectsMissingFields(t *testing.T) {
	_, err := Envelope{Message: "x", Timestamp: time.Now()}.Encode()
	require.Error(t, err, "user_id is required")

	_, err = Envelope{UserID: "u", Message: "x"}.Encode()
	require.Error(t, err, "timestamp is required")
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	_, err := DecodeEnvelope([]byte("{not json"))
	require.Error(t, err)
}
