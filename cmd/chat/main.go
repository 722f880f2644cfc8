package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visionboard-chat/internal/auth"
	"visionboard-chat/internal/chat"
	"visionboard-chat/internal/config"
	"visionboard-chat/internal/logger"
	"visionboard-chat/internal/mq"
	"visionboard-chat/internal/registry"
	"visionboard-chat/internal/repository"
	"visionboard-chat/internal/server"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret must be set")
	}

	ctx := context.Background()

	db, err := repository.NewDatabase(ctx, cfg.Database.DSN, cfg.Database.PoolSize)
	if err != nil {
		log.Fatalf("DB connect error: %v", err)
	}
	defer db.Close()

	checks := map[string]server.HealthCheck{
		"postgres": db.Ping,
	}

	var broker mq.Broker
	switch cfg.Broker.Kind {
	case "memory":
		broker = mq.NewMemory()
	default:
		rdb, err := repository.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			log.Fatalf("Redis connect error: %v", err)
		}
		defer rdb.Close()
		checks["redis"] = rdb.Ping
		broker = mq.NewRedisMQ(rdb.Client)
	}
	defer broker.Close()

	reg := registry.New()
	hub := chat.NewHub(reg, broker)
	defer hub.Close()

	svc := chat.NewService(db, db, broker)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(addr, verifier, svc, hub, checks)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case sig := <-quit:
		logger.Info(logger.TagHTTP, "Received %s, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(logger.TagHTTP, "Shutdown error: %v", err)
		}
	}
}
