package ratelimit

import (
	"math"
	"sync"
	"time"
)

// maxKeys bounds the bucket map before Allow sweeps idle keys.
const maxKeys = 4096

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a per-key token bucket.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	now        func() time.Time
}

// New builds a limiter allowing bursts of capacity and refillPerSec sustained requests per key.
func New(capacity, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		m:          make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillPerSec,
		now:        time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		if len(l.m) >= maxKeys {
			l.prune(now.Add(-l.fullAfter()))
		}
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	l.refill(b, now)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RetryAfter reports how long key has to wait for its next token. Zero when a token is available.
func (l *Limiter) RetryAfter(key string) time.Duration {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		return 0
	}
	l.refill(b, now)
	if b.tokens >= 1 {
		return 0
	}
	if l.refillRate <= 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration((1 - b.tokens) / l.refillRate * float64(time.Second))
}

// Prune drops buckets idle for longer than idle; they would be full again anyway.
func (l *Limiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prune(cutoff)
}

func (l *Limiter) refill(b *bucket, now time.Time) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.tokens+elapsed*l.refillRate, l.capacity)
		b.last = now
	}
}

// fullAfter is the idle time after which any bucket is back at capacity.
func (l *Limiter) fullAfter() time.Duration {
	if l.refillRate <= 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(l.capacity / l.refillRate * float64(time.Second))
}

func (l *Limiter) prune(cutoff time.Time) int {
	n := 0
	for k, b := range l.m {
		if b.last.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}
