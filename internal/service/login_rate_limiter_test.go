package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestLoginRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLoginRateLimiter(time.Minute, 2).(*loginRateLimiter)
	l.now = func() time.Time { return now }

	if !l.Allow("email:a@x.com") || !l.Allow("email:a@x.com") {
		t.Fatalf("expected first two attempts to be allowed")
	}
	if l.Allow("email:a@x.com") {
		t.Fatalf("expected third attempt to be denied")
	}
	if !l.Allow("email:b@x.com") {
		t.Fatalf("expected other keys to be independent")
	}

	now = now.Add(time.Minute + time.Second)
	if !l.Allow("email:a@x.com") {
		t.Fatalf("expected attempts to be allowed after the window")
	}
}

func TestLoginRateLimiter_DropsExpiredKeys(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLoginRateLimiter(15*time.Minute, 10).(*loginRateLimiter)
	l.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		if !l.Allow(fmt.Sprintf("email:user%d@x.com", i)) {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}
	if got := len(l.attempts); got != 1000 {
		t.Fatalf("expected 1000 tracked keys, got %d", got)
	}

	now = now.Add(24 * time.Hour)
	if !l.Allow("email:fresh@x.com") {
		t.Fatalf("expected fresh key to be allowed")
	}
	if got := len(l.attempts); got != 1 {
		t.Fatalf("expected expired keys to be dropped, %d keys still tracked", got)
	}
}

func TestLoginRateLimiter_KeepsKeysInsideWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLoginRateLimiter(time.Minute, 1).(*loginRateLimiter)
	l.now = func() time.Time { return now }

	l.Allow("email:old@x.com")
	now = now.Add(50 * time.Second)
	l.Allow("email:recent@x.com")
	now = now.Add(20 * time.Second)

	if l.Allow("email:recent@x.com") {
		t.Fatalf("expected recent key to stay throttled")
	}
	if _, ok := l.attempts["email:old@x.com"]; ok {
		t.Fatalf("expected old key to be swept")
	}
	if l.Allow("  ") {
		t.Fatalf("expected empty key to be rejected")
	}
}

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestRedisLoginRateLimiterAllow(t *testing.T) {
	t.Run("nil receiver fail-open", func(t *testing.T) {
		var l *redisLoginRateLimiter
		if !l.Allow("email:user@example.com") {
			t.Fatalf("expected fail-open for nil limiter")
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		l := &redisLoginRateLimiter{client: &mockRedisEvaler{result: 1}, window: time.Minute, max: 3, prefix: "auth:login:rl:"}
		if l.Allow("   ") {
			t.Fatalf("expected empty key to be rejected")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 2}
		l := &redisLoginRateLimiter{client: mock, window: 2 * time.Minute, max: 3, prefix: "auth:login:rl:"}
		if !l.Allow(" username:alice ") {
			t.Fatalf("expected allow when count <= max")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "auth:login:rl:username:alice" {
			t.Fatalf("unexpected key, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != 120 {
			t.Fatalf("expected TTL seconds=120, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisLoginAllowScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		l := &redisLoginRateLimiter{client: &mockRedisEvaler{result: 4}, window: time.Minute, max: 3, prefix: "auth:login:rl:"}
		if l.Allow("email:user@example.com") {
			t.Fatalf("expected deny when count > max")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		l := &redisLoginRateLimiter{
			client: &mockRedisEvaler{err: errors.New("redis down")},
			window: time.Minute,
			max:    3,
			prefix: "auth:login:rl:",
			logger: zap.NewNop(),
		}
		if !l.Allow("email:user@example.com") {
			t.Fatalf("expected fail-open on redis errors")
		}
	})
}

func TestRedisLoginRateLimiter_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l := NewRedisLoginRateLimiter(client, time.Minute, 2, zap.NewNop())
	for i := 0; i < 2; i++ {
		if !l.Allow("email:a@x.com") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("email:a@x.com") {
		t.Fatalf("expected third attempt to be denied")
	}

	ttl := mr.TTL("auth:login:rl:email:a@x.com")
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected key TTL within the window, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if !l.Allow("email:a@x.com") {
		t.Fatalf("expected counter to reset after the window")
	}
}
