package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"catalog-search/internal/models"
)

const cacheKeyPrefix = "search:"

// CacheKey is the cache key for a trimmed query and a normalized limit.
func CacheKey(q string, limit int) string {
	return fmt.Sprintf("%s%s:%d", cacheKeyPrefix, q, limit)
}

// SuggestCache stores suggestion lists for a fixed TTL. A miss is reported as
// ok=false with a nil error.
type SuggestCache interface {
	Get(ctx context.Context, key string) ([]models.Suggestion, bool, error)
	Set(ctx context.Context, key string, suggestions []models.Suggestion) error
	Invalidate(ctx context.Context) (int, error)
}

// RedisCache keeps JSON-encoded suggestion lists in Redis.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.Suggestion, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var out []models.Suggestion
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	if out == nil {
		out = []models.Suggestion{}
	}
	return out, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, suggestions []models.Suggestion) error {
	raw, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops every suggestion entry and returns how many were removed.
func (c *RedisCache) Invalidate(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, cacheKeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("cache delete: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
