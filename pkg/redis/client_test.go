package redis

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type fakeStore struct {
	values  map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:  map[string]string{},
		counts:  map[string]int64{},
		expires: map[string]time.Duration{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) *redislib.StatusCmd {
	return redislib.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redislib.StatusCmd {
	f.values[key] = toString(value)
	return redislib.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(ctx context.Context, key string) *redislib.StringCmd {
	if v, ok := f.values[key]; ok {
		return redislib.NewStringResult(v, nil)
	}
	return redislib.NewStringResult("", redislib.Nil)
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redislib.BoolCmd {
	if _, exists := f.values[key]; exists {
		return redislib.NewBoolResult(false, nil)
	}
	f.values[key] = toString(value)
	return redislib.NewBoolResult(true, nil)
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redislib.IntCmd {
	f.counts[key]++
	return redislib.NewIntResult(f.counts[key], nil)
}

func (f *fakeStore) Expire(ctx context.Context, key string, ttl time.Duration) *redislib.BoolCmd {
	f.expires[key] = ttl
	return redislib.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redislib.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	return redislib.NewIntResult(removed, nil)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func TestKeyNamespacing(t *testing.T) {
	c := &Client{store: newFakeStore()}

	if got := c.IdempotencyKey("credits_purchase", "abc"); got != "aimage:idempotency:credits_purchase:abc" {
		t.Fatalf("unexpected idempotency key: %s", got)
	}
	if got := c.RateLimitKey("login:ip:1.2.3.4"); got != "aimage:rate_limit:login:ip:1.2.3.4" {
		t.Fatalf("unexpected rate limit key: %s", got)
	}
	if got := c.AccessSessionKey("sess-1"); got != "aimage:session:access:sess-1" {
		t.Fatalf("unexpected session key: %s", got)
	}
}

func TestFixedWindowAllow(t *testing.T) {
	store := newFakeStore()
	c := &Client{store: store}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, count, err := c.FixedWindowAllow(ctx, "login:email:a@b.c", 3, time.Minute)
		if err != nil {
			t.Fatalf("FixedWindowAllow error: %v", err)
		}
		if !allowed || count != int64(i) {
			t.Fatalf("request %d should be allowed (count=%d)", i, count)
		}
	}

	allowed, count, err := c.FixedWindowAllow(ctx, "login:email:a@b.c", 3, time.Minute)
	if err != nil {
		t.Fatalf("FixedWindowAllow error: %v", err)
	}
	if allowed || count != 4 {
		t.Fatalf("fourth request should be denied, got allowed=%v count=%d", allowed, count)
	}

	if ttl := store.expires[c.RateLimitKey("login:email:a@b.c")]; ttl != time.Minute {
		t.Fatalf("window TTL should be set on first increment, got %v", ttl)
	}
}

func TestSetNXOnlyOnce(t *testing.T) {
	c := &Client{store: newFakeStore()}
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", "v1", 0)
	if err != nil || !ok {
		t.Fatalf("first SetNX should succeed: ok=%v err=%v", ok, err)
	}
	ok, err = c.SetNX(ctx, "k", "v2", 0)
	if err != nil || ok {
		t.Fatalf("second SetNX should be rejected: ok=%v err=%v", ok, err)
	}
	if v, _ := c.Get(ctx, "k"); v != "v1" {
		t.Fatalf("value should remain v1, got %s", v)
	}
}
