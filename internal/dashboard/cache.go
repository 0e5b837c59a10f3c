package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale dashboard numbers may be.
const DefaultCacheTTL = 30 * time.Second

// Cache keeps computed stats in Redis. A nil Cache always calls the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// FetchJSON loads a cached value into dest or populates it using the loader.
// Redis failures are logged and fall back to the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	enabled := c != nil && c.client != nil
	if enabled {
		raw, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			jerr := json.Unmarshal(raw, dest)
			if jerr == nil {
				return nil
			}
			c.logger.WarnContext(ctx, "dashboard cache entry unreadable", slog.String("key", key), slog.Any("error", jerr))
		case errors.Is(err, redis.Nil):
		default:
			c.logger.WarnContext(ctx, "dashboard cache read", slog.String("key", key), slog.Any("error", err))
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if enabled {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "dashboard cache write", slog.String("key", key), slog.Any("error", err))
		}
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate drops cached entries under key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}
