package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a sliding window limiter shared by every server instance
// pointed at the same Redis.
type RateLimiter struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client redis.UniversalClient, keyPrefix string) *RateLimiter {
	return &RateLimiter{client: client, keyPrefix: keyPrefix}
}

// Allow records one request for key and reports whether it fits in the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	fullKey := r.keyPrefix + ":ratelimit:" + key
	now := time.Now().UnixNano()
	windowStart := now - window.Nanoseconds()

	// Use sliding window counter algorithm
	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, fullKey, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("count window: %w", err)
	}

	current := int(countCmd.Val())
	if current >= limit {
		return false, 0, nil
	}

	pipe = r.client.Pipeline()
	pipe.ZAdd(ctx, fullKey, redis.Z{Score: float64(now), Member: strconv.FormatInt(now, 10) + "-" + uuid.NewString()})
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("record request: %w", err)
	}

	return true, limit - current - 1, nil
}
