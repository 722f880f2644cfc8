package mq

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"visionboard-chat/internal/logger"
)

// RedisMQ bridges Redis pub/sub to the Broker interface. Redis channels carry
// no persistence; they are delivery-only fan-out across service instances.
type RedisMQ struct {
	client *redis.Client
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRedisMQ(client *redis.Client) *RedisMQ {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisMQ{
		client: client,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish sends data to a Redis channel.
func (r *RedisMQ) Publish(topic string, payload []byte) error {
	err := r.client.Publish(r.ctx, topic, payload).Err()
	if err != nil {
		return fmt.Errorf("redis publish error: %w", err)
	}
	return nil
}

// Subscribe listens to a Redis channel and returns a read-only channel of
// messages. The channel closes when ctx is cancelled or the subscription dies.
func (r *RedisMQ) Subscribe(ctx context.Context, topic string) (<-chan *Message, error) {
	pubsub := r.client.Subscribe(ctx, topic)

	// Confirm the subscription before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe error: %w", err)
	}

	msgChan := make(chan *Message, 100)

	go func() {
		defer close(msgChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case redisMsg, ok := <-ch:
				if !ok {
					logger.Debug(logger.TagMQ, "Redis PubSub channel closed for topic: %s", topic)
					return
				}
				select {
				case msgChan <- &Message{Topic: topic, Payload: []byte(redisMsg.Payload)}:
				case <-ctx.Done():
					return
				case <-r.ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			case <-r.ctx.Done():
				return
			}
		}
	}()

	return msgChan, nil
}

func (r *RedisMQ) Close() error {
	r.cancel()
	return nil
}
