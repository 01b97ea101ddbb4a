package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	assert.True(t, l.Allow("u2"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
}

func TestLimiterPrune(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(time.Hour)
	l.Allow("b")

	assert.Equal(t, 1, l.Prune(time.Minute))
}

func TestLimiterRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 0.2)
	l.now = func() time.Time { return now }

	assert.Zero(t, l.RetryAfter("u1"))
	assert.True(t, l.Allow("u1"))
	assert.Equal(t, 5*time.Second, l.RetryAfter("u1"))

	now = now.Add(2 * time.Second)
	assert.InDelta(t, float64(3*time.Second), float64(l.RetryAfter("u1")), float64(time.Millisecond))
}

func TestLimiterSweepsIdleKeysWhenFull(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	for i := 0; i < maxKeys; i++ {
		l.Allow(time.Duration(i).String())
	}
	now = now.Add(time.Minute)
	assert.True(t, l.Allow("fresh"))
	assert.Len(t, l.m, 1)
}
