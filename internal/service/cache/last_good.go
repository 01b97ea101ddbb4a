package cache

import (
	"sync"
	"time"
)

type entry struct {
	v  any
	at time.Time
}

// LastGood remembers the most recent successful value per key so a failed read can fall
// back to it. Entries older than maxAge are dropped on access; maxAge <= 0 keeps them forever.
type LastGood struct {
	mu     sync.RWMutex
	m      map[string]entry
	maxAge time.Duration
	now    func() time.Time
}

func NewLastGood(maxAge time.Duration) *LastGood {
	return &LastGood{m: make(map[string]entry), maxAge: maxAge, now: time.Now}
}

// Put records v as the last good value for key.
func (c *LastGood) Put(key string, v any) {
	c.mu.Lock()
	c.m[key] = entry{v: v, at: c.now()}
	c.mu.Unlock()
}

// Get returns the value and when it was stored.
func (c *LastGood) Get(key string) (any, time.Time, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, time.Time{}, false
	}
	if c.maxAge > 0 && c.now().Sub(e.at) > c.maxAge {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, time.Time{}, false
	}
	return e.v, e.at, true
}

func (c *LastGood) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Lookup is a typed Get.
func Lookup[T any](c *LastGood, key string) (T, time.Time, bool) {
	var zero T
	v, at, ok := c.Get(key)
	if !ok {
		return zero, time.Time{}, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, time.Time{}, false
	}
	return t, at, true
}
