package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"infergate/internal/metrics"
	"infergate/pkg/logging"
)

// Logging wraps a Cache with request-scoped logging and hit metrics.
type Logging struct {
	inner Cache
}

func NewLogging(inner Cache) Cache {
	return &Logging{inner: inner}
}

func (c *Logging) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)

	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
		metrics.CacheHitsTotal.Inc()
	}

	logger := logging.L(ctx)
	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.String("cache_result", result),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		logger.Warn("cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_get", fields...)
	}
	return value, ok, err
}

func (c *Logging) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)

	logger := logging.L(ctx)
	fields := []zap.Field{
		zap.String("cache_key", key),
		zap.Int("bytes", len(value)),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		logger.Warn("cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_set", fields...)
	}
	return err
}
