package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Cache backed by a shared Redis instance. Operations use a
// short per-call timeout so a slow Redis degrades to cache misses instead of
// stalling request handling.
type RedisCache struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, timeout: 2 * time.Second}
}

func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.client.FlushDB(ctx).Err()
}

func (c *RedisCache) Stats() map[string]interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return map[string]interface{}{"backend": "redis", "error": err.Error()}
	}
	return map[string]interface{}{
		"backend": "redis",
		"entries": size,
	}
}

func (c *RedisCache) Close() error {
	if c.client == nil {
		return errors.New("redis client is nil")
	}
	return c.client.Close()
}
