package answercache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"docchat/internal/rag/interfaces"
)

// RedisCache stores generated answers in Redis with a TTL, so repeating a
// question against the same document skips the embedding and LLM calls.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache over an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached answer for key, reporting a miss as found=false.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	answer, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("answer cache read failed: %w", err)
	}
	return answer, true, nil
}

// Set stores an answer under key for the given TTL.
func (c *RedisCache) Set(ctx context.Context, key, answer string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, answer, ttl).Err(); err != nil {
		return fmt.Errorf("answer cache write failed: %w", err)
	}
	return nil
}

var _ interfaces.AnswerCache = (*RedisCache)(nil)
