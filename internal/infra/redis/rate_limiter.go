package redis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"discount-code-engine/internal/domain/ports/adapter"
	"discount-code-engine/internal/infra/metrics"
)

var _ adapter.AdmissionLimiter = (*RateLimiter)(nil)

// RateLimiter is a fixed-window counter per caller identity. It FAILS OPEN:
// if Redis is unreachable the call is permitted, because an availability
// fault in the limiter must never block legitimate redemption.
type RateLimiter struct {
	client RedisClient
	limit  int
	window time.Duration
	log    *zerolog.Logger
}

func NewRateLimiter(client RedisClient, limit int, window time.Duration, logger *zerolog.Logger) *RateLimiter {
	l := logger.With().Str("component", "RateLimiter").Logger()
	return &RateLimiter{client: client, limit: limit, window: window, log: &l}
}

func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		metrics.IncLimiterFailOpen()
		r.log.Warn().Err(err).Str("key", key).Msg("limiter storage unavailable, failing open")
		return true, nil
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window); err != nil {
			metrics.IncLimiterFailOpen()
			r.log.Warn().Err(err).Str("key", key).Msg("limiter storage unavailable, failing open")
			return true, nil
		}
	}

	return count <= int64(r.limit), nil
}
