package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter enforces a fixed-window request budget per caller key, backed by
// Redis so the limit holds across instances. A Redis outage degrades open:
// requests are allowed and a warning is logged.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewLimiter constructs a limiter allowing limit requests per minute.
func NewLimiter(client *redis.Client, limit int, logger *zap.Logger) *Limiter {
	return &Limiter{client: client, limit: limit, window: time.Minute, logger: logger}
}

// Allow reports whether the caller identified by key may proceed.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true
	}

	windowStart := time.Now().Truncate(l.window).Unix()
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, windowStart)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		if l.logger != nil {
			l.logger.Warn("rate limiter unavailable; allowing request", zap.Error(err))
		}
		return true
	}
	return incr.Val() <= int64(l.limit)
}
