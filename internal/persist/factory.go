package persist

import (
	"time"
)

// Driver represents the type of persistence store.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverFile   Driver = "file"
	DriverRedis  Driver = "redis"
)

// NewStore creates a Store for the given driver.
// The file driver requires WithFilePath; the Redis driver requires
// WithRedisClient.
func NewStore(driver Driver, opts ...Option) (Store, error) {
	config := &storeConfig{
		keyPrefix: "chat",
	}

	for _, opt := range opts {
		opt(config)
	}

	switch driver {
	case DriverMemory:
		return newMemoryStore(), nil

	case DriverFile:
		if config.filePath == "" {
			return nil, ErrInvalidConfig
		}
		return newFileStore(config.filePath), nil

	case DriverRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		ttl := config.redisTTL
		if ttl <= 0 {
			ttl = 30 * 24 * time.Hour
		}
		return &redisStore{
			client: config.redisClient,
			ttl:    ttl,
			prefix: config.keyPrefix,
		}, nil

	default:
		return nil, ErrInvalidDriver
	}
}
