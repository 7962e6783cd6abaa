package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c, err := NewMemoryCache(Config{MemorySize: 16, TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	ctx := context.Background()

	if err := c.Set(ctx, "org:slug:acme", []byte("org-1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, ok, err := c.Get(ctx, "org:slug:acme")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(value) != "org-1" {
		t.Errorf("value = %q, want org-1", value)
	}

	if err := c.Delete(ctx, "org:slug:acme"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "org:slug:acme"); ok {
		t.Error("key still present after Delete")
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)

	c, err := NewRedisCache(Config{RedisURL: "redis://" + srv.Addr(), TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "app:app-1", []byte(`{"name":"backend"}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, ok, err := c.Get(ctx, "app:app-1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(value) != `{"name":"backend"}` {
		t.Errorf("value = %q", value)
	}

	srv.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "app:app-1"); ok {
		t.Error("key survived TTL expiry")
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	if _, err := New(Config{Backend: "etcd"}); err == nil {
		t.Error("unknown backend must error")
	}
}

func TestNewMemoryBackend(t *testing.T) {
	c, err := New(Config{Backend: "memory", MemorySize: 8, TTL: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
