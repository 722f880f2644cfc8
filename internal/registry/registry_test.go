package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"visionboard-chat/internal/logger"
)

func init() { logger.Init() }

type fakeConn struct {
	mu        sync.Mutex
	delivered [][]byte
	failing   bool
	closed    bool
}

func (c *fakeConn) Deliver(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.delivered = append(c.delivered, payload)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) deliveredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.delivered)
}

func TestRegistry_JoinLeaveLifecycle(t *testing.T) {
	req := require.New(t)
	r := New()
	a, b := &fakeConn{}, &fakeConn{}

	req.True(r.Join("room-1", a), "first member must report first")
	req.False(r.Join("room-1", b), "second member must not report first")
	req.Equal(2, r.Count("room-1"))
	req.Equal(1, r.Rooms())

	req.False(r.Leave("room-1", a), "non-last member must not report last")
	req.True(r.Leave("room-1", b), "last member must report last")
	req.Equal(0, r.Rooms(), "empty room entry must be deleted")
}

func TestRegistry_LeaveUnknownRoom(t *testing.T) {
	r := New()
	require.False(t, r.Leave("nope", &fakeConn{}))
}

func TestRegistry_BroadcastEvictsDeadPeer(t *testing.T) {
	req := require.New(t)
	r := New()
	alive1, dead, alive2 := &fakeConn{}, &fakeConn{failing: true}, &fakeConn{}
	r.Join("room-1", alive1)
	r.Join("room-1", dead)
	r.Join("room-1", alive2)

	delivered := r.BroadcastLocal("room-1", []byte("hello"))

	req.Equal(2, delivered, "one dead peer must not abort delivery to others")
	req.Equal(1, alive1.deliveredCount())
	req.Equal(1, alive2.deliveredCount())
	req.True(dead.closed)
	req.Equal(2, r.Count("room-1"), "dead peer must be evicted")
}

func TestRegistry_EvictedLastMemberStillReportsLast(t *testing.T) {
	req := require.New(t)
	r := New()
	dead := &fakeConn{failing: true}
	r.Join("room-1", dead)

	req.Equal(0, r.BroadcastLocal("room-1", []byte("x")))
	// The room entry survives eviction so the owning session's cleanup still
	// observes the emptiness transition exactly once.
	req.Equal(1, r.Rooms())
	req.True(r.Leave("room-1", dead))
	req.Equal(0, r.Rooms())
}

func TestRegistry_CloseRoom(t *testing.T) {
	req := require.New(t)
	r := New()
	a, b := &fakeConn{}, &fakeConn{}
	r.Join("room-1", a)
	r.Join("room-1", b)

	r.CloseRoom("room-1")

	req.True(a.closed)
	req.True(b.closed)
	req.Equal(0, r.Rooms())
}

type slowConn struct {
	fakeConn
	delay time.Duration
}

func (c *slowConn) Deliver(payload []byte) error {
	time.Sleep(c.delay)
	return c.fakeConn.Deliver(payload)
}

// A slow delivery in one room must not stall membership changes in any other,
// even while a leave on the broadcasting room is already waiting.
func TestRegistry_SlowBroadcastDoesNotBlockOtherRooms(t *testing.T) {
	req := require.New(t)
	r := New()

	slow := &slowConn{delay: 500 * time.Millisecond}
	other := &fakeConn{}
	r.Join("room-a", slow)
	r.Join("room-a", other)

	broadcastDone := make(chan struct{})
	go func() {
		r.BroadcastLocal("room-a", []byte("x"))
		close(broadcastDone)
	}()
	// Let the broadcast take room-a's lock before leaving.
	time.Sleep(50 * time.Millisecond)

	leaveDone := make(chan struct{})
	go func() {
		r.Leave("room-a", other)
		close(leaveDone)
	}()
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	r.Join("room-b", &fakeConn{})
	req.Less(time.Since(start), 200*time.Millisecond,
		"join on an unrelated room must not wait for room-a's broadcast")

	<-broadcastDone
	<-leaveDone
	req.Equal(1, r.Count("room-a"))
	req.Equal(2, r.Rooms())
}

func TestRegistry_ConcurrentJoinBroadcastLeave(t *testing.T) {
	r := New()
	const workers = 16
	const messages = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := fmt.Sprintf("room-%d", i%4)
			conn := &fakeConn{}
			r.Join(room, conn)
			for j := 0; j < messages; j++ {
				r.BroadcastLocal(room, []byte("m"))
			}
			r.Leave(room, conn)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, r.Rooms(), "all rooms must be cleaned up")
}
