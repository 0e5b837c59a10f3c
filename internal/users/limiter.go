package users

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter tracks failed password attempts per email.
type LoginLimiter interface {
	Locked(ctx context.Context, email string) (bool, error)
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// RedisLoginLimiter counts failures in Redis. The counter expires one
// lockout window after the first failure.
type RedisLoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	lockout     time.Duration
	prefix      string
}

// NewRedisLoginLimiter builds a limiter allowing maxAttempts failures per lockout window.
func NewRedisLoginLimiter(client *redis.Client, maxAttempts int, lockout time.Duration) *RedisLoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &RedisLoginLimiter{client: client, maxAttempts: maxAttempts, lockout: lockout, prefix: "login:fail:"}
}

func (l *RedisLoginLimiter) key(email string) string {
	return l.prefix + email
}

// Locked reports whether email has used up its attempts.
func (l *RedisLoginLimiter) Locked(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(email)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("users: login limiter get: %w", err)
	}
	return n >= l.maxAttempts, nil
}

// Fail records a failed attempt.
func (l *RedisLoginLimiter) Fail(ctx context.Context, email string) error {
	key := l.key(email)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("users: login limiter incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.lockout).Err(); err != nil {
			return fmt.Errorf("users: login limiter expire: %w", err)
		}
	}
	return nil
}

// Reset clears the failure counter after a successful login.
func (l *RedisLoginLimiter) Reset(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("users: login limiter reset: %w", err)
	}
	return nil
}

// NopLoginLimiter never locks.
type NopLoginLimiter struct{}

func (NopLoginLimiter) Locked(context.Context, string) (bool, error) { return false, nil }
func (NopLoginLimiter) Fail(context.Context, string) error           { return nil }
func (NopLoginLimiter) Reset(context.Context, string) error          { return nil }
