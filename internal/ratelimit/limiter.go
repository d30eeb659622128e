// Package ratelimit caps requests per client over a fixed window. When a
// Redis client is available the window is shared across instances via
// INCR+EXPIRE; otherwise an in-process counter serves a single instance.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oakstreet-digital/business-site-backend/pkg/util"
)

const keyPrefix = "ratelimit:"

// Limiter enforces a fixed request window per client key.
type Limiter struct {
	client *redis.Client
	max    int
	window time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// New builds a limiter. client may be nil.
func New(client *redis.Client, max int, windowDur time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{
		client:  client,
		max:     max,
		window:  windowDur,
		logger:  logger,
		windows: make(map[string]*window),
	}
}

// Allow reports whether the key has remaining quota in the current window.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.client != nil {
		allowed, err := l.allowRedis(ctx, key)
		if err == nil {
			return allowed
		}
		l.logger.Warn("redis rate limit check failed; using in-process window", zap.Error(err))
	}
	return l.allowLocal(key)
}

func (l *Limiter) allowRedis(ctx context.Context, key string) (bool, error) {
	redisKey := keyPrefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.max), nil
}

func (l *Limiter) allowLocal(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	w.count++
	return w.count <= l.max
}

// Middleware applies the limit per client IP, independent of the route.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.UserContext(), c.IP()) {
			return util.NewTooManyRequests("too many requests, please try again later")
		}
		return c.Next()
	}
}
