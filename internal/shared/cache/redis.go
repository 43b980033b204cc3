// Package cache opens the Redis connection shared by the history store,
// the stats store and the rate limiter.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thumbfast/server/internal/shared/config"
)

const pingTimeout = 5 * time.Second

// NewRedisClient connects to the configured Redis and verifies it answers.
// Address may list several comma-separated nodes, in which case a cluster
// client is returned.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(options(cfg))

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Address, err)
	}
	return client, nil
}

func options(cfg *config.RedisConfig) *redis.UniversalOptions {
	var addrs []string
	for _, a := range strings.Split(cfg.Address, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return &redis.UniversalOptions{
		Addrs:    addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
