package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is an in-process LRU backend for development and tests.
// Expiry is fixed at construction; per-call ttls are ignored.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache creates an in-process cache
func NewMemoryCache(cfg Config) (*MemoryCache, error) {
	size := cfg.MemorySize
	if size <= 0 {
		size = 4096
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, []byte](size, nil, cfg.TTL),
	}, nil
}

// Get returns the cached value and whether the key was present
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := c.lru.Get(key)
	return value, ok, nil
}

// Set stores a value; the ttl argument is ignored, see type doc
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.lru.Add(key, value)
	return nil
}

// Delete removes a key
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Ping always succeeds for the in-process backend
func (c *MemoryCache) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-process backend
func (c *MemoryCache) Close() error {
	return nil
}
