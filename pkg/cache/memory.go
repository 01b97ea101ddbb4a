package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryOption configures MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMemoryMaxSize bounds the number of entries; the least recently used goes first.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(mc *MemoryCache) {
		if size > 0 {
			mc.maxSize = size
		}
	}
}

// WithMemoryCleanup sets how often expired entries are swept.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(mc *MemoryCache) {
		if interval > 0 {
			mc.sweepEvery = interval
		}
	}
}

type memEntry struct {
	key      string
	value    []byte
	expireAt time.Time
}

// MemoryCache is an in-process LRU with per-entry expiry.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	lru        *list.List // front = most recently used
	maxSize    int
	sweepEvery time.Duration
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemoryCache creates an in-memory cache and starts its sweeper.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	mc := &MemoryCache{
		items:      make(map[string]*list.Element),
		lru:        list.New(),
		maxSize:    1000,
		sweepEvery: 5 * time.Minute,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(mc)
	}
	go mc.sweep()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	mc.setRaw(key, data, ttl)
	return nil
}

func (mc *MemoryCache) setRaw(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e := &memEntry{key: key, value: data, expireAt: mc.now().Add(ttl)}
	if el, ok := mc.items[key]; ok {
		el.Value = e
		mc.lru.MoveToFront(el)
		return
	}
	mc.items[key] = mc.lru.PushFront(e)
	for mc.lru.Len() > mc.maxSize {
		mc.remove(mc.lru.Back())
	}
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	data, ok := mc.getRaw(key)
	if !ok {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) getRaw(key string) ([]byte, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	el, ok := mc.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*memEntry)
	if !mc.now().Before(e.expireAt) {
		mc.remove(el)
		return nil, false
	}
	mc.lru.MoveToFront(el)
	return e.value, true
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		if el, ok := mc.items[k]; ok {
			mc.remove(el)
		}
	}
	return nil
}

func (mc *MemoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for k, el := range mc.items {
		if strings.HasPrefix(k, prefix) {
			mc.remove(el)
		}
	}
	return nil
}

// Len reports live and not yet swept entries.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.lru.Len()
}

// remove expects mc.mu held.
func (mc *MemoryCache) remove(el *list.Element) {
	e := mc.lru.Remove(el).(*memEntry)
	delete(mc.items, e.key)
}

func (mc *MemoryCache) sweep() {
	t := time.NewTicker(mc.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-mc.done:
			return
		case <-t.C:
		}
		mc.mu.Lock()
		now := mc.now()
		for _, el := range mc.items {
			if !now.Before(el.Value.(*memEntry).expireAt) {
				mc.remove(el)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the sweeper.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() { close(mc.done) })
	return nil
}
