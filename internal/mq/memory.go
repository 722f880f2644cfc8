package mq

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("broker closed")

// Memory is an in-process Broker for single-instance deployments and tests.
// Delivery to a slow subscriber is best-effort: a full subscriber buffer drops
// the message rather than blocking the publisher.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan *Message
	nextID int
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[int]chan *Message)}
}

func (m *Memory) Publish(topic string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	for _, ch := range m.subs[topic] {
		select {
		case ch <- &Message{Topic: topic, Payload: payload}:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (<-chan *Message, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.nextID++
	id := m.nextID
	ch := make(chan *Message, 100)
	if m.subs[topic] == nil {
		m.subs[topic] = make(map[int]chan *Message)
	}
	m.subs[topic][id] = ch
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if subs, ok := m.subs[topic]; ok {
			if _, live := subs[id]; live {
				delete(subs, id)
				close(ch)
				if len(subs) == 0 {
					delete(m.subs, topic)
				}
			}
		}
		m.mu.Unlock()
	}()

	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for topic, subs := range m.subs {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
		}
		delete(m.subs, topic)
	}
	return nil
}
