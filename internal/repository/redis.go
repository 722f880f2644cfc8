package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"visionboard-chat/internal/logger"
)

// RedisClient holds the shared redis connection used by the pub/sub bridge.
type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(addr, password string) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          0,
		DialTimeout: 5 * time.Second,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info(logger.TagMQ, "Connected to Redis at %s", addr)
	return &RedisClient{Client: rdb}, nil
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisClient) Close() {
	_ = r.Client.Close()
}
