package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend string // "memory" or "redis"
	TTL     time.Duration
	Prefix  string
}

// New selects a backend. redisClient may be nil for the memory backend.
func New(cfg Config, redisClient *redis.Client) Cache {
	switch cfg.Backend {
	case "redis":
		return NewRedis(redisClient, cfg.Prefix)
	default:
		return NewMemory(cfg.TTL)
	}
}
