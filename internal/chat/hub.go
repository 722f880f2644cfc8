package chat

import (
	"context"
	"sync"

	"visionboard-chat/internal/logger"
	"visionboard-chat/internal/mq"
	"visionboard-chat/internal/registry"
)

type subscription struct {
	topic  string
	cancel context.CancelFunc
}

// Hub ties the Connection Registry to the pub/sub bridge. The first local
// member of a room opens exactly one broker subscription for it; the last one
// out tears it down. A terminal subscription error closes the room's local
// connections so clients get a reconnect signal instead of silence.
type Hub struct {
	registry *registry.Registry
	consumer mq.Consumer

	mu   sync.Mutex
	subs map[string]*subscription // room key -> live subscription
	wg   sync.WaitGroup
}

func NewHub(reg *registry.Registry, consumer mq.Consumer) *Hub {
	return &Hub{
		registry: reg,
		consumer: consumer,
		subs:     make(map[string]*subscription),
	}
}

// Join registers conn under the room key and, when the room has no live
// subscription yet, starts the listener for its topic.
func (h *Hub) Join(room, topic string, conn registry.Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.registry.Join(room, conn)
	if _, ok := h.subs[room]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.subs[room] = &subscription{topic: topic, cancel: cancel}
	h.wg.Add(1)
	go h.runSubscriber(ctx, room, topic)
	logger.Debug(logger.TagMQ, "Subscription started for room %s (topic %s)", room, topic)
}

// Leave deregisters conn. When the room's local list empties, its broker
// subscription is cancelled. Safe to call from multiple cleanup paths; the
// registry reports emptiness exactly once.
func (h *Hub) Leave(room string, conn registry.Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if last := h.registry.Leave(room, conn); last {
		h.dropSubscription(room)
	}
}

// Broadcast delivers payload to every local connection of the room.
func (h *Hub) Broadcast(room string, payload []byte) int {
	return h.registry.BroadcastLocal(room, payload)
}

// Close cancels every subscription and waits for the listeners to drain.
func (h *Hub) Close() {
	h.mu.Lock()
	for room := range h.subs {
		h.dropSubscription(room)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// dropSubscription must be called with h.mu held.
func (h *Hub) dropSubscription(room string) {
	if sub, ok := h.subs[room]; ok {
		sub.cancel()
		delete(h.subs, room)
		logger.Debug(logger.TagMQ, "Subscription cancelled for room %s", room)
	}
}

func (h *Hub) runSubscriber(ctx context.Context, room, topic string) {
	defer h.wg.Done()

	ch, err := h.consumer.Subscribe(ctx, topic)
	if err != nil {
		logger.Error(logger.TagMQ, "Subscribe failed for room %s (topic %s): %v", room, topic, err)
		h.failRoom(room)
		return
	}

	for msg := range ch {
		h.registry.BroadcastLocal(room, msg.Payload)
	}

	// The stream only closes on teardown or on broker loss. The latter makes
	// the room undeliverable: close its local connections rather than letting
	// them hang with no feedback.
	if ctx.Err() == nil {
		logger.Error(logger.TagMQ, "Broker stream lost for room %s (topic %s), closing local connections", room, topic)
		h.failRoom(room)
	}
}

func (h *Hub) failRoom(room string) {
	h.mu.Lock()
	h.dropSubscription(room)
	h.mu.Unlock()
	h.registry.CloseRoom(room)
}
