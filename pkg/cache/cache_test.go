package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int    `json:"x"`
	L string `json:"l"`
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, opts ...MemoryOption) (*MemoryCache, *clock) {
	t.Helper()
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { _ = mc.Close() })
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	mc.now = clk.now
	return mc, clk
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	mc, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "p", []point{{X: 1, L: "a"}}, time.Minute))
	var got []point
	require.NoError(t, mc.Get(ctx, "p", &got))
	assert.Equal(t, []point{{X: 1, L: "a"}}, got)

	require.NoError(t, mc.Set(ctx, "raw", []byte(`{"x":2}`), time.Minute))
	var raw []byte
	require.NoError(t, mc.Get(ctx, "raw", &raw))
	assert.JSONEq(t, `{"x":2}`, string(raw))
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc, clk := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Second))
	var s string
	require.NoError(t, mc.Get(ctx, "k", &s))

	clk.advance(time.Second)
	err := mc.Get(ctx, "k", &s)
	assert.True(t, errors.Is(err, ErrCacheMiss))
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	mc, _ := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"dash:market_data:all", "dash:holdings:u1", "dash:holdings:u2", "other"} {
		require.NoError(t, mc.Set(ctx, k, 1, time.Minute))
	}
	require.NoError(t, mc.DeleteByPrefix(ctx, "dash:holdings:"))

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "dash:holdings:u1", &v), ErrCacheMiss)
	assert.ErrorIs(t, mc.Get(ctx, "dash:holdings:u2", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "dash:market_data:all", &v))
	assert.NoError(t, mc.Get(ctx, "other", &v))

	require.NoError(t, mc.DeleteByPrefix(ctx, ""))
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc, _ := newTestCache(t, WithMemoryMaxSize(2))
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.NoError(t, mc.Get(ctx, "c", &v))
}

func TestMemoryCache_OverwriteKeepsSize(t *testing.T) {
	mc, _ := newTestCache(t, WithMemoryMaxSize(2))
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, mc.Set(ctx, "a", 2, time.Minute))
	assert.Equal(t, 1, mc.Len())

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 2, v)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "dash:holdings:u1", Key("dash", "holdings", "u1"))
	assert.Equal(t, "dash:trading_signals:20", Key("dash", "trading_signals", 20))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `dash:a\*b\?\[c\]`, escapeGlob("dash:a*b?[c]"))
	assert.Equal(t, "plain:key", escapeGlob("plain:key"))
}

func TestRedisCache_Key(t *testing.T) {
	c := NewRedisCacheFromClient(nil, "symbiotic:")
	assert.Equal(t, "symbiotic:dash:x", c.key("dash:x"))
	assert.Equal(t, "x", NewRedisCacheFromClient(nil, "").key("x"))
}
