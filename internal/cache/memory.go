package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory in-process cache backed by go-cache.
type Memory[T any] struct {
	items *gocache.Cache
	ttl   time.Duration
}

// NewMemory creates an in-process cache whose entries live for ttl.
func NewMemory[T any](ttl time.Duration) *Memory[T] {
	cleanup := defaultCleanupInterval
	if ttl < cleanup {
		cleanup = ttl
	}
	return &Memory[T]{
		items: gocache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (m *Memory[T]) Get(_ context.Context, key string) (T, bool, error) {
	var zero T

	raw, ok := m.items.Get(key)
	if !ok {
		return zero, false, nil
	}
	value, ok := raw.(T)
	if !ok {
		return zero, false, nil
	}

	return value, true, nil
}

func (m *Memory[T]) Set(_ context.Context, key string, value T) error {
	m.items.Set(key, value, m.ttl)
	return nil
}

func (m *Memory[T]) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}
