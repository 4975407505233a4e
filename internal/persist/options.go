package persist

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Option is a functional option for configuring a persistence store.
type Option func(*storeConfig)

// storeConfig holds configuration for persistence stores.
type storeConfig struct {
	filePath    string
	redisClient *redis.Client
	redisTTL    time.Duration
	keyPrefix   string
}

// WithFilePath sets the file path for the file store.
func WithFilePath(path string) Option {
	return func(c *storeConfig) {
		c.filePath = path
	}
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) Option {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the TTL for Redis keys.
func WithRedisTTL(ttl time.Duration) Option {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// WithKeyPrefix sets the key prefix used by the Redis store.
func WithKeyPrefix(prefix string) Option {
	return func(c *storeConfig) {
		c.keyPrefix = prefix
	}
}
