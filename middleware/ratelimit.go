package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"carmarket/logger"
	"carmarket/models"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// IPRateLimiter is a per-process sliding window, used when Redis is not configured.
type IPRateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *IPRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) > rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	requests := rl.requests[key]
	i := 0
	for ; i < len(requests); i++ {
		if requests[i].After(cutoff) {
			break
		}
	}
	requests = requests[i:]

	if len(requests) >= rl.limit {
		rl.requests[key] = requests
		return false, nil
	}
	rl.requests[key] = append(requests, now)
	return true, nil
}

// sweep forgets keys with no request inside the window.
func (rl *IPRateLimiter) sweep(cutoff time.Time) {
	for key, requests := range rl.requests {
		if len(requests) == 0 || !requests[len(requests)-1].After(cutoff) {
			delete(rl.requests, key)
		}
	}
}

// RedisRateLimiter is a fixed window shared by every instance behind the same Redis.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("rl:%s", key)

	cnt, err := rl.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}
	if cnt == 1 {
		if err := rl.rdb.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			return true, fmt.Errorf("set rate limit window: %w", err)
		}
	}
	if cnt <= int64(rl.limit) {
		return true, nil
	}

	// a counter left without a TTL would throttle the key forever
	if ttl, err := rl.rdb.TTL(ctx, redisKey).Result(); err == nil && ttl == -1 {
		if err := rl.rdb.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			logger.Logger(ctx).WithError(err).WithField("key", redisKey).Warn("failed to restore rate limit window")
		}
	}
	return false, nil
}

// RateLimitMiddleware keys requests by client IP. Limiter errors fail open.
func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		allowed, err := limiter.Allow(ctx, "ip:"+c.ClientIP())
		if err != nil {
			logger.Logger(ctx).WithError(err).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			AbortWithError(c, models.NewRateLimitedError())
			return
		}
		c.Next()
	}
}
