package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"survey-bot-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to redis when REDIS_ADDR is set. A nil client means the
// in-memory stores should be used.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	log.Printf("[Cache] connected to redis at %s", cfg.RedisAddr)
	return rdb, nil
}
