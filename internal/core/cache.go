// Package core holds the ports shared between the outbound services and their adapters.
package core

import (
	"context"
	"time"
)

// CacheRepository is the byte-level key/value store behind the preferences cache.
// Implementations report a miss as (nil, nil), never as an error.
type CacheRepository interface {
	// Set stores value under key. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Health backs the cache readiness probe.
	Health(ctx context.Context) error
}
