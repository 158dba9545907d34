package cache

import (
	"context"
	"time"
)

// NullCache disables caching: every pipeline stage recomputes on every run.
// Selected with --no-cache or the "none" backend in the config file.
type NullCache struct{}

// NewNullCache returns the disabled cache.
func NewNullCache() Cache { return NullCache{} }

// Get always misses.
func (NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the payload.
func (NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete is a no-op.
func (NullCache) Delete(ctx context.Context, key string) error { return nil }

// Close is a no-op.
func (NullCache) Close() error { return nil }

// Ensure NullCache implements Cache.
var _ Cache = NullCache{}
