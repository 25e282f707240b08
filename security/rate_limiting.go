package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter in Redis, keyed by caller
// identity. It fails open: when Redis is unreachable the request is
// allowed, since rejecting walk-in joins over a cache outage would be
// worse than missing a few abusive requests.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{redis: redisClient, limit: limit, window: window}
}

// Allow reports whether the caller identified by key may proceed.
func (r *RateLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("ratelimit:join:%s", key)

	count, err := r.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, redisKey, r.window)
	}

	return count <= int64(r.limit)
}
