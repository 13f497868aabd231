package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisLoginAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisLoginRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
	logger *zap.Logger
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisLoginRateLimiter comparte el conteo entre instancias (ventana fija INCR+EXPIRE).
func NewRedisLoginRateLimiter(client *redis.Client, window time.Duration, max int, logger *zap.Logger) LoginRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisLoginRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "auth:login:rl:",
		logger: logger,
	}
}

func (l *redisLoginRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	redisKey := l.prefix + normalizedKey
	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisLoginAllowScript, []string{redisKey}, seconds).Int()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("login rate limiter unavailable", zap.Error(err))
		}
		return true
	}
	return count <= l.max
}
