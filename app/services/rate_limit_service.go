// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitService counts events per key inside a rolling window. Counters
// live in a shared store with TTL so every instance sees the same totals.
type RateLimitService interface {
	// Hit increments the counter for key and returns the new count plus the
	// time remaining until the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Peek returns the current count without incrementing.
	Peek(ctx context.Context, key string) (int64, error)
}

// RedisRateLimitService implements RateLimitService on Redis INCR + EXPIRE
type RedisRateLimitService struct {
	client *redis.Client
	prefix string
}

// NewRedisRateLimitService creates a Redis-backed rate limit service
func NewRedisRateLimitService(client *redis.Client, prefix string) RateLimitService {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimitService{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisRateLimitService) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Hit increments the counter and sets the TTL on first increment. The TTL is
// only set when the key is new, so the window is anchored to the first event.
func (s *RedisRateLimitService) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := s.key(key)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit hit failed: %w", err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

// Peek returns the current count for key; missing keys count as zero
func (s *RedisRateLimitService) Peek(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, s.key(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rate limit peek failed: %w", err)
	}
	return count, nil
}
