// Package cache provides TTL caches for computed price data and a loader
// that coalesces concurrent misses of the same key.
package cache

import (
	"context"
	"time"
)

// Cache typed key/value store whose entries expire after a fixed TTL.
type Cache[T any] interface {
	// Get returns the cached value and whether it was found and unexpired.
	Get(ctx context.Context, key string) (T, bool, error)
	// Set stores value under key for the cache TTL.
	Set(ctx context.Context, key string, value T) error
	// Delete evicts key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// Backend names accepted in config.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const defaultCleanupInterval = 10 * time.Minute
