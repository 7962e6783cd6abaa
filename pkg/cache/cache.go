// Package cache provides a small byte-oriented cache with Redis and
// in-process backends. It is only ever used for non-authorization data;
// roles and permissions are read fresh from the database on every request.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is the interface both backends implement
type Cache interface {
	// Get returns the cached value and whether the key was present
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A zero ttl means the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes a key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// Ping checks backend health
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and tunes the backend
type Config struct {
	Backend    string
	RedisURL   string
	TTL        time.Duration
	MemorySize int
}

// New creates the configured cache backend
func New(cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisCache(cfg)
	case "memory":
		return NewMemoryCache(cfg)
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
}
