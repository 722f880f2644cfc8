package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"visionboard-chat/internal/logger"
)

// Database wraps the shared postgres pool. The pool size is bounded;
// acquisition blocks when exhausted rather than failing fast.
type Database struct {
	Pool *pgxpool.Pool
}

func NewDatabase(ctx context.Context, dsn string, poolSize int) (*Database, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	if poolSize > 0 {
		config.MaxConns = int32(poolSize)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info(logger.TagStore, "Connected to PostgreSQL (max conns: %d)", config.MaxConns)
	return &Database{Pool: pool}, nil
}

// Ping verifies the pool is still reachable. Used by the health endpoint.
func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *Database) Close() {
	db.Pool.Close()
}
