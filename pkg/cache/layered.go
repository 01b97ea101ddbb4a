package cache

import (
	"context"
	"time"
)

// LayeredOption configures LayeredCache.
type LayeredOption func(*LayeredCache)

// WithLayeredMemorySize bounds the in-process tier.
func WithLayeredMemorySize(size int) LayeredOption {
	return func(lc *LayeredCache) {
		if size > 0 {
			lc.l1Size = size
		}
	}
}

// WithLayeredMemoryTTL caps how long a value lives in the in-process tier.
func WithLayeredMemoryTTL(ttl time.Duration) LayeredOption {
	return func(lc *LayeredCache) {
		if ttl > 0 {
			lc.l1TTL = ttl
		}
	}
}

// LayeredCache reads through a short-lived memory tier in front of Redis.
// Writes go to Redis first so other replicas see them.
type LayeredCache struct {
	l1     *MemoryCache
	l2     *RedisCache
	l1Size int
	l1TTL  time.Duration
}

func NewLayeredCache(l2 *RedisCache, opts ...LayeredOption) *LayeredCache {
	lc := &LayeredCache{l2: l2, l1Size: 1000, l1TTL: 10 * time.Second}
	for _, opt := range opts {
		opt(lc)
	}
	lc.l1 = NewMemoryCache(WithMemoryMaxSize(lc.l1Size), WithMemoryCleanup(lc.l1TTL))
	return lc
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.l2.setRaw(ctx, key, data, ttl); err != nil {
		return err
	}
	lc.l1.setRaw(key, data, lc.localTTL(ttl))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, ok := lc.l1.getRaw(key); ok {
		return decode(data, dest)
	}
	data, err := lc.l2.getRaw(ctx, key)
	if err != nil {
		return err
	}
	lc.l1.setRaw(key, data, lc.l1TTL)
	return decode(data, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	_ = lc.l1.DeleteByPrefix(ctx, prefix)
	return lc.l2.DeleteByPrefix(ctx, prefix)
}

func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}

func (lc *LayeredCache) localTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < lc.l1TTL {
		return ttl
	}
	return lc.l1TTL
}
