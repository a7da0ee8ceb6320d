package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchFunc computes a fresh value. cacheable=false returns the value to
// callers without storing it.
type FetchFunc[T any] func(ctx context.Context) (value T, cacheable bool, err error)

// Loader reads through a Cache and coalesces concurrent misses of one key
// into a single fetch.
//
// The shared fetch runs detached from any single caller's cancellation:
// a caller that gives up only stops waiting, the others still get the result.
//
// Every Refresh starts a new generation of its key. A fetch only stores its
// value if no Refresh happened since it started, so a slow fetch that began
// before a Refresh cannot overwrite the refreshed entry.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
	l     *zap.Logger

	mu   sync.Mutex
	gens map[string]uint64
}

// NewLoader creates a loader over c.
func NewLoader[T any](c Cache[T], l *zap.Logger) *Loader[T] {
	return &Loader[T]{cache: c, l: l, gens: make(map[string]uint64)}
}

// Get returns the cached value for key or fetches, caches and returns a new one.
func (ld *Loader[T]) Get(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	value, ok, err := ld.cache.Get(ctx, key)
	if err != nil {
		ld.l.Warn("cache read failed, fetching", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return value, nil
	}

	return ld.load(ctx, key, fetch)
}

// Refresh evicts key and fetches a new value. It never joins a fetch that
// started before the eviction.
func (ld *Loader[T]) Refresh(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	ld.mu.Lock()
	ld.gens[key]++
	ld.mu.Unlock()

	if err := ld.cache.Delete(ctx, key); err != nil {
		ld.l.Warn("cache evict failed", zap.String("key", key), zap.Error(err))
	}
	ld.group.Forget(key)

	return ld.load(ctx, key, fetch)
}

func (ld *Loader[T]) load(ctx context.Context, key string, fetch FetchFunc[T]) (T, error) {
	detached := context.WithoutCancel(ctx)

	ch := ld.group.DoChan(key, func() (any, error) {
		gen := ld.generation(key)
		value, cacheable, err := fetch(detached)
		if err != nil {
			return value, err
		}
		if cacheable {
			ld.store(detached, key, gen, value)
		}
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (ld *Loader[T]) generation(key string) uint64 {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	return ld.gens[key]
}

// store writes value unless key was refreshed after the fetch started.
func (ld *Loader[T]) store(ctx context.Context, key string, gen uint64, value T) {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	if ld.gens[key] != gen {
		ld.l.Debug("dropping value fetched before refresh", zap.String("key", key))
		return
	}
	if err := ld.cache.Set(ctx, key, value); err != nil {
		ld.l.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
