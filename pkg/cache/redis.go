package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis operations retry on transient failures so one dropped connection
// does not fail a pipeline run that would otherwise hit the cache.
const (
	redisRetryAttempts = 3
	redisRetryBase     = 250 * time.Millisecond
)

// RedisCache implements Cache on a Redis backend, for deployments where
// several users or machines share one pipeline cache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis at the given address and verifies the
// connection with a ping before returning.
func NewRedisCache(ctx context.Context, addr string) (Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		data []byte
		hit  bool
	)
	err := RetryWithBackoff(ctx, redisRetryAttempts, redisRetryBase, func() error {
		b, err := c.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			data, hit = nil, false
			return nil
		}
		if err != nil {
			return Retryable(err)
		}
		data, hit = b, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return data, hit, nil
}

// Set stores a value. A zero ttl stores without expiration.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return RetryWithBackoff(ctx, redisRetryAttempts, redisRetryBase, func() error {
		return Retryable(c.client.Set(ctx, key, data, ttl).Err())
	})
}

// Delete removes a value. Deleting a missing key is not an error.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return RetryWithBackoff(ctx, redisRetryAttempts, redisRetryBase, func() error {
		return Retryable(c.client.Del(ctx, key).Err())
	})
}

// Close releases the client connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
