// Package xcache wraps eko/gocache with a typed, memory-backed cache used
// for short-lived derived data (connector health, compiled rule lookups).
package xcache

import (
	"context"
	"errors"
	"time"

	"github.com/eko/gocache/lib/v4/store"

	cachelib "github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"
)

// Cache is an alias to the gocache CacheInterface for convenience, exposing
// Get/Set/Delete/Invalidate/Clear/GetType.
type Cache[T any] = cachelib.CacheInterface[T]

type Option = store.Option

func WithExpiration(expiration time.Duration) Option {
	return store.WithExpiration(expiration)
}

// NewMemory creates an in-memory cache using patrickmn/go-cache as the
// backend. Pass an existing *gocache.Cache so you control default
// expiration and cleanup interval.
func NewMemory[T any](client *gocache.Cache, options ...Option) Cache[T] {
	s := gocache_store.NewGoCache(client, options...)
	return cachelib.New[T](s)
}

// NewMemoryWithOptions builds the go-cache client for you using the
// provided default expiration and cleanup interval.
func NewMemoryWithOptions[T any](defaultExpiration, cleanupInterval time.Duration, options ...Option) Cache[T] {
	client := gocache.New(defaultExpiration, cleanupInterval)
	return NewMemory[T](client, options...)
}

// ErrCacheNotConfigured is returned when getting from a noop cache.
var ErrCacheNotConfigured = errors.New("cache not configured")

// noopCache does nothing; it avoids nil checks when caching is disabled.
type noopCache[T any] struct{}

// NewNoop creates a cache that stores nothing.
func NewNoop[T any]() Cache[T] {
	return &noopCache[T]{}
}

func (n *noopCache[T]) Get(ctx context.Context, key any) (T, error) {
	var zero T
	return zero, store.NotFoundWithCause(ErrCacheNotConfigured)
}

func (n *noopCache[T]) Set(ctx context.Context, key any, object T, options ...Option) error {
	return nil
}

func (n *noopCache[T]) Delete(ctx context.Context, key any) error {
	return nil
}

func (n *noopCache[T]) Invalidate(ctx context.Context, options ...store.InvalidateOption) error {
	return nil
}

func (n *noopCache[T]) Clear(ctx context.Context) error {
	return nil
}

func (n *noopCache[T]) GetType() string {
	return "noop"
}
