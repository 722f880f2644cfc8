package mq

import "context"

// Message represents a message received from the broker.
type Message struct {
	Topic   string
	Payload []byte
}

// Producer defines the interface for publishing messages. Publish is
// fire-and-forget: durability comes from the store write that precedes it.
type Producer interface {
	Publish(topic string, payload []byte) error
}

// Consumer defines the interface for subscribing to topics. The returned
// channel closes when ctx is cancelled or the broker connection is lost;
// callers distinguish the two via ctx.Err().
type Consumer interface {
	Subscribe(ctx context.Context, topic string) (<-chan *Message, error)
	Close() error
}

// Broker is both halves of a topic-based pub/sub transport.
type Broker interface {
	Producer
	Consumer
}
