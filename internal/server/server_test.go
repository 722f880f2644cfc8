package server

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"visionboard-chat/internal/auth"
	"visionboard-chat/internal/chat"
	"visionboard-chat/internal/logger"
	"visionboard-chat/internal/mq"
	"visionboard-chat/internal/registry"
)

func init() { logger.Init() }

const testSecret = "server-test-secret"

func signToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// testStore is an in-memory MessageStore and ProfileDirectory with strictly
// increasing timestamps, so pagination behaves deterministically.
type testStore struct {
	mu sync.Mutex

	boards  map[string]bool
	members map[string]map[string]bool
	users   map[string]bool
	avatars map[string]string

	group  []chat.GroupMessage
	direct []chat.DirectMessage
	clock  time.Time
	seq    int

	saveErr      error
	saveAttempts int
}

func newTestStore() *testStore {
	return &testStore{
		boards:  map[string]bool{},
		members: map[string]map[string]bool{},
		users:   map[string]bool{},
		avatars: map[string]string{},
		clock:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *testStore) tick() (string, time.Time) {
	s.seq++
	s.clock = s.clock.Add(time.Second)
	return fmt.Sprintf("msg-%04d", s.seq), s.clock
}

func (s *testStore) BoardExists(_ context.Context, boardID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boards[boardID], nil
}

func (s *testStore) IsBoardMember(_ context.Context, boardID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[boardID][userID], nil
}

func (s *testStore) SaveGroupMessage(_ context.Context, boardID, senderID, message string) (*chat.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveAttempts++
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	id, at := s.tick()
	m := chat.GroupMessage{ID: id, VisionBoardID: boardID, SenderID: senderID, Message: message, CreatedAt: at}
	s.group = append(s.group, m)
	return &m, nil
}

func (s *testStore) GroupMessages(_ context.Context, boardID string, limit int, before *time.Time) ([]chat.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.GroupMessage
	for i := len(s.group) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.group[i]
		if m.VisionBoardID != boardID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *testStore) UserExists(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID], nil
}

func (s *testStore) SaveDirectMessage(_ context.Context, senderID, receiverID, message string) (*chat.DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveAttempts++
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	id, at := s.tick()
	m := chat.DirectMessage{ID: id, SenderID: senderID, ReceiverID: receiverID, Message: message, CreatedAt: at}
	s.direct = append(s.direct, m)
	return &m, nil
}

func (s *testStore) DirectMessages(_ context.Context, userID, otherID string, limit int, before *time.Time) ([]chat.DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.DirectMessage
	for i := len(s.direct) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.direct[i]
		pair := (m.SenderID == userID && m.ReceiverID == otherID) || (m.SenderID == otherID && m.ReceiverID == userID)
		if !pair {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *testStore) ConversationPartners(_ context.Context, userID string) ([]chat.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]time.Time{}
	for _, m := range s.direct {
		var other string
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if m.CreatedAt.After(seen[other]) {
			seen[other] = m.CreatedAt
		}
	}
	var partners []chat.Partner
	for id, at := range seen {
		partners = append(partners, chat.Partner{UserID: id, LastMessageAt: at})
	}
	return partners, nil
}

func (s *testStore) AvatarURL(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url, ok := s.avatars[userID]
	if !ok || url == "" {
		return "", chat.ErrNotFound
	}
	return url, nil
}

func (s *testStore) failSaves(err error) {
	s.mu.Lock()
	s.saveErr = err
	s.mu.Unlock()
}

func (s *testStore) saveAttemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAttempts
}

func (s *testStore) groupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.group)
}

func (s *testStore) directCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.direct)
}

type testEnv struct {
	ts     *httptest.Server
	store  *testStore
	broker *mq.Memory
	hub    *chat.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newTestStore()
	broker := mq.NewMemory()
	reg := registry.New()
	hub := chat.NewHub(reg, broker)
	svc := chat.NewService(store, store, broker)
	verifier := auth.NewVerifier(testSecret)

	srv := New("127.0.0.1:0", verifier, svc, hub, map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
	})

	ts := httptest.NewServer(srv.httpSrv.Handler)
	t.Cleanup(func() {
		ts.Close()
		hub.Close()
		broker.Close()
	})
	return &testEnv{ts: ts, store: store, broker: broker, hub: hub}
}
