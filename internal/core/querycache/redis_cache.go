// Package querycache caches derived query results in Redis.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/CoachHub/internal/core"
)

var (
	_ core.QueryCache = (*RedisCache)(nil)
	_ core.QueryCache = Noop{}
)

// RedisCache versions every group. Entries are written under the group's
// current version, so bumping the version orphans them until they expire.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redisURL and pings it.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client), nil
}

func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "qc:"}
}

func (c *RedisCache) versionKey(group string) string {
	return c.prefix + "ver:" + group
}

func (c *RedisCache) entryKey(group string, version int64, key string) string {
	return fmt.Sprintf("%s%s:%d:%s", c.prefix, group, version, key)
}

func (c *RedisCache) version(ctx context.Context, group string) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey(group)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache version %s: %w", group, err)
	}
	return v, nil
}

// Get decodes the cached value into dst. It reports false on a miss.
func (c *RedisCache) Get(ctx context.Context, group, key string, dst any) (bool, error) {
	ver, err := c.version(ctx, group)
	if err != nil {
		return false, err
	}
	raw, err := c.client.Get(ctx, c.entryKey(group, ver, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache %s/%s: %w", group, key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cache %s/%s: %w", group, key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, group, key string, v any, ttl time.Duration) error {
	ver, err := c.version(ctx, group)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache %s/%s: %w", group, key, err)
	}
	if err := c.client.Set(ctx, c.entryKey(group, ver, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("write cache %s/%s: %w", group, key, err)
	}
	return nil
}

// Invalidate bumps the group version.
func (c *RedisCache) Invalidate(ctx context.Context, group string) error {
	if err := c.client.Incr(ctx, c.versionKey(group)).Err(); err != nil {
		return fmt.Errorf("invalidate cache %s: %w", group, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop never stores anything. Used when REDIS_URL is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, string, any, time.Duration) error { return nil }
func (Noop) Invalidate(context.Context, string) error { return nil }
