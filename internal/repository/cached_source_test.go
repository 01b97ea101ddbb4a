package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	"Symbiotic/pkg/cache"
)

type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (s *countingSource) hit(table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[table]++
	return s.err
}

func (s *countingSource) count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[table]
}

func (s *countingSource) ListQuotes(ctx context.Context) ([]models.PriceQuote, error) {
	if err := s.hit(domrepo.TableMarketData); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query market_data: %w", err)
	}
	return []models.PriceQuote{{Asset: models.Asset{Symbol: "BTC", Type: models.AssetCrypto}, Price: decimal.NewFromInt(100), ChangePct: 2}}, nil
}

func (s *countingSource) ListHoldings(_ context.Context, userID string) ([]models.Holding, error) {
	if err := s.hit(domrepo.TableHoldings); err != nil {
		return nil, err
	}
	return []models.Holding{{UserID: userID, Ticker: "BTC", Quantity: decimal.NewFromInt(1)}}, nil
}

func (s *countingSource) ListSignals(_ context.Context, limit int) ([]models.Signal, error) {
	if err := s.hit(domrepo.TableSignals); err != nil {
		return nil, err
	}
	return []models.Signal{{ID: "s1", Score: limit}}, nil
}

func (s *countingSource) ListPredictionMarkets(context.Context, int) ([]models.PredictionMarket, error) {
	if err := s.hit(domrepo.TablePredictions); err != nil {
		return nil, err
	}
	return []models.PredictionMarket{}, nil
}

func (s *countingSource) ListHealth(context.Context, int) ([]models.HealthComponent, error) {
	if err := s.hit(domrepo.TableHealth); err != nil {
		return nil, err
	}
	return []models.HealthComponent{{Component: "db", Status: models.StatusHealthy}}, nil
}

func (s *countingSource) Ping(context.Context) error { return s.err }

func newCached(t *testing.T, next domrepo.DataSource, bc BreakerConfig) *CachedSource {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	return NewCachedSource(next, mc, time.Minute, bc, nil, nil)
}

func TestCachedSource_ReadThrough(t *testing.T) {
	src := &countingSource{}
	cs := newCached(t, src, BreakerConfig{})
	ctx := context.Background()

	first, err := cs.ListQuotes(ctx)
	require.NoError(t, err)
	second, err := cs.ListQuotes(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, src.count(domrepo.TableMarketData))
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Asset, second[0].Asset)
	assert.True(t, first[0].Price.Equal(second[0].Price))
}

func TestCachedSource_KeysIncludeParameters(t *testing.T) {
	src := &countingSource{}
	cs := newCached(t, src, BreakerConfig{})
	ctx := context.Background()

	_, _ = cs.ListHoldings(ctx, "u1")
	_, _ = cs.ListHoldings(ctx, "u2")
	_, _ = cs.ListHoldings(ctx, "u1")
	assert.Equal(t, 2, src.count(domrepo.TableHoldings))

	s5, _ := cs.ListSignals(ctx, 5)
	s9, _ := cs.ListSignals(ctx, 9)
	assert.Equal(t, 5, s5[0].Score)
	assert.Equal(t, 9, s9[0].Score)
}

func TestCachedSource_Invalidate(t *testing.T) {
	src := &countingSource{}
	cs := newCached(t, src, BreakerConfig{})
	ctx := context.Background()

	_, _ = cs.ListQuotes(ctx)
	_, _ = cs.ListHealth(ctx, 10)

	require.NoError(t, cs.Invalidate(ctx, domrepo.TableMarketData))
	_, _ = cs.ListQuotes(ctx)
	_, _ = cs.ListHealth(ctx, 10)
	assert.Equal(t, 2, src.count(domrepo.TableMarketData))
	assert.Equal(t, 1, src.count(domrepo.TableHealth))

	require.NoError(t, cs.Invalidate(ctx, ""))
	_, _ = cs.ListHealth(ctx, 10)
	assert.Equal(t, 2, src.count(domrepo.TableHealth))
}

func TestCachedSource_BreakerOpensAfterFailures(t *testing.T) {
	src := &countingSource{err: errors.New("timeout")}
	cs := newCached(t, src, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := cs.ListHealth(ctx, 10)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domrepo.ErrDataSourceUnavailable))
	}
	assert.Equal(t, 2, src.count(domrepo.TableHealth), "open breaker must short-circuit")
	assert.Equal(t, "open", cs.BreakerStates()[domrepo.TableHealth])
	assert.Equal(t, "closed", cs.BreakerStates()[domrepo.TableMarketData])

	var se *domrepo.SourceError
	_, err := cs.ListHealth(ctx, 10)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domrepo.TableHealth, se.Source)
}

func TestCachedSource_CancelledCallersDoNotTripBreaker(t *testing.T) {
	src := &countingSource{}
	cs := newCached(t, src, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour})

	gone, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_, err := cs.ListQuotes(gone)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", cs.BreakerStates()[domrepo.TableMarketData])

	quotes, err := cs.ListQuotes(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	assert.Equal(t, 4, src.count(domrepo.TableMarketData))
}

func TestCachedSource_DeadlineExceededCountsAsFailure(t *testing.T) {
	src := &countingSource{err: fmt.Errorf("query health: %w", context.DeadlineExceeded)}
	cs := newCached(t, src, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		_, err := cs.ListHealth(context.Background(), 10)
		require.Error(t, err)
	}
	assert.Equal(t, "open", cs.BreakerStates()[domrepo.TableHealth])
}
