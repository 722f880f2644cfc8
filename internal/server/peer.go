package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// peer adapts one gorilla connection to the registry.Handle contract. The
// subscriber goroutine and the session loop both write, so writes are
// serialized by a mutex.
type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex

	closeOnce sync.Once
}

func newPeer(conn *websocket.Conn) *peer {
	return &peer{conn: conn}
}

// Deliver writes one text frame. An error means the peer is gone.
func (p *peer) Deliver(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close tears the connection down, flagging an internal error to the client
// so it can reconnect. Best-effort: the peer may already be gone.
func (p *peer) Close() error {
	p.closeOnce.Do(func() {
		p.closeWith(websocket.CloseInternalServerErr, "room unavailable")
	})
	return nil
}

// closeWith sends a close frame with the given code and closes the socket.
func (p *peer) closeWith(code int, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = p.conn.Close()
}
