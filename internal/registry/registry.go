package registry

import (
	"sync"

	"visionboard-chat/internal/logger"
)

// Handle is one live client connection. Deliver must be safe for concurrent
// use; a Deliver error means the peer is gone and the handle gets evicted.
type Handle interface {
	Deliver(payload []byte) error
	Close() error
}

type room struct {
	mu    sync.RWMutex
	conns []Handle
	// gone marks a room whose map entry has been removed. Operations that
	// raced with the removal retry or no-op instead of resurrecting it.
	gone bool
}

// Registry is the per-process table of which connections belong to which room.
// The room map and each room's connection list are guarded separately, and the
// map lock is never held while waiting on a room lock, so a slow delivery in
// one room never stalls joins or leaves on another.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func New() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Join adds conn to the room, creating the room lazily. Reports whether conn
// is the first member of the room.
func (r *Registry) Join(roomKey string, conn Handle) (first bool) {
	for {
		r.mu.Lock()
		rm, ok := r.rooms[roomKey]
		if !ok {
			rm = &room{}
			r.rooms[roomKey] = rm
		}
		r.mu.Unlock()

		rm.mu.Lock()
		if rm.gone {
			// Lost a race with the room's removal; start over.
			rm.mu.Unlock()
			continue
		}
		first = len(rm.conns) == 0
		rm.conns = append(rm.conns, conn)
		rm.mu.Unlock()
		return first
	}
}

// Leave removes conn from the room. When the room empties, the entry is
// deleted and last is true, exactly once per room lifetime. Leaving an unknown
// room or a conn already evicted is a no-op aside from the emptiness check.
func (r *Registry) Leave(roomKey string, conn Handle) (last bool) {
	r.mu.RLock()
	rm, ok := r.rooms[roomKey]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	rm.mu.Lock()
	rm.conns = remove(rm.conns, conn)
	last = len(rm.conns) == 0 && !rm.gone
	if last {
		rm.gone = true
	}
	rm.mu.Unlock()

	if last {
		r.mu.Lock()
		if r.rooms[roomKey] == rm {
			delete(r.rooms, roomKey)
		}
		r.mu.Unlock()
	}
	return last
}

// BroadcastLocal delivers payload to every connection in the room. A failed
// delivery evicts that handle and delivery continues to the rest; one dead
// peer never aborts the fan-out. Returns how many deliveries succeeded.
func (r *Registry) BroadcastLocal(roomKey string, payload []byte) (delivered int) {
	r.mu.RLock()
	rm, ok := r.rooms[roomKey]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	rm.mu.RLock()
	conns := make([]Handle, len(rm.conns))
	copy(conns, rm.conns)
	rm.mu.RUnlock()

	// Delivery happens outside the room lock so one slow peer never stalls
	// joins and leaves; each handle serializes its own writes.
	var dead []Handle
	for _, conn := range conns {
		if err := conn.Deliver(payload); err != nil {
			logger.Warn(logger.TagSession, "Evicting dead connection from room %s: %v", roomKey, err)
			_ = conn.Close()
			dead = append(dead, conn)
			continue
		}
		delivered++
	}

	if len(dead) > 0 {
		// Eviction never deletes the room entry: the owning sessions still run
		// their Leave cleanup, so the emptiness signal fires exactly once.
		rm.mu.Lock()
		for _, conn := range dead {
			rm.conns = remove(rm.conns, conn)
		}
		rm.mu.Unlock()
	}
	return delivered
}

// CloseRoom closes and removes every connection in the room, and deletes the
// room entry. Used when the room's broker subscription dies.
func (r *Registry) CloseRoom(roomKey string) {
	r.mu.Lock()
	rm, ok := r.rooms[roomKey]
	if ok {
		delete(r.rooms, roomKey)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.gone = true
	for _, conn := range rm.conns {
		_ = conn.Close()
	}
	rm.conns = nil
}

// Count reports the number of live connections in a room.
func (r *Registry) Count(roomKey string) int {
	r.mu.RLock()
	rm, ok := r.rooms[roomKey]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.conns)
}

// Rooms reports the number of tracked rooms.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func remove(conns []Handle, conn Handle) []Handle {
	for i, c := range conns {
		if c == conn {
			return append(conns[:i], conns[i+1:]...)
		}
	}
	return conns
}
