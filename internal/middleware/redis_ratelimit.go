package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"textbook-gateway/internal/logger"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisRateLimiter shares a fixed-window quota across gateway replicas.
// When Redis is unreachable it lets the request through and logs, so chat
// keeps working in degraded mode.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	log    *logger.Logger
}

func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration, log *logger.Logger) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "textbook-gateway:ratelimit"
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisRateLimiter{client: client, prefix: prefix, limit: limit, window: window, log: log}, nil
}

func (l *RedisRateLimiter) Allow(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		return true
	}
	windowSlot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowSlot)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		l.log.Warn("rate limiter unavailable, allowing request", "error", err)
		return true
	}
	return count <= int64(l.limit)
}
