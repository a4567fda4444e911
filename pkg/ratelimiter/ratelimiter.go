package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitError is returned when a subject used up its attempts.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// Limiter is a fixed-window counter kept in redis. A nil client disables it.
type Limiter struct {
	rdb    *redis.Client
	prefix string
}

func New(rdb *redis.Client, prefix string) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix}
}

func (l *Limiter) key(subject, action string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, subject, action)
}

// Allow counts one attempt for subject/action and fails with a
// *RateLimitError once more than limit attempts happened inside window.
func (l *Limiter) Allow(ctx context.Context, subject, action string, limit int, window time.Duration) error {
	if l == nil || l.rdb == nil || window <= 0 || limit <= 0 {
		return nil
	}

	key := l.key(subject, action)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	if count <= int64(limit) {
		return nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return &RateLimitError{
		Message:    fmt.Sprintf("too many attempts, retry in %.0f seconds", ttl.Seconds()),
		RetryAfter: ttl,
	}
}

// Reset forgets the attempts of subject/action, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, subject, action string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, l.key(subject, action)).Err()
}
