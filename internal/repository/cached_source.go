package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	"Symbiotic/pkg/cache"
	"Symbiotic/pkg/logger"
)

const cachePrefix = "dash"

// BreakerConfig tunes the per-collection circuit breakers.
type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// CachedSource is a read-through decorator over a DataSource. Each collection is cached for
// ttl and guarded by its own circuit breaker, so one failing table does not block the rest.
type CachedSource struct {
	next     domrepo.DataSource
	cache    cache.Service
	ttl      time.Duration
	breakers map[string]*gobreaker.CircuitBreaker
	metrics  domrepo.Metrics
	log      *logger.Logger
}

func NewCachedSource(next domrepo.DataSource, c cache.Service, ttl time.Duration, bc BreakerConfig, m domrepo.Metrics, l *logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if bc.MaxFailures == 0 {
		bc.MaxFailures = 3
	}
	if bc.OpenTimeout <= 0 {
		bc.OpenTimeout = 30 * time.Second
	}
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	cs := &CachedSource{
		next:     next,
		cache:    c,
		ttl:      ttl,
		breakers: make(map[string]*gobreaker.CircuitBreaker, len(domrepo.Tables)),
		metrics:  m,
		log:      l,
	}
	for _, table := range domrepo.Tables {
		cs.breakers[table] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        table,
			MaxRequests: 1,
			Timeout:     bc.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= bc.MaxFailures
			},
			IsSuccessful: breakerNeutral,
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warn("data source breaker state changed",
					logger.String("table", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			},
		})
	}
	return cs
}

func (c *CachedSource) ListQuotes(ctx context.Context) ([]models.PriceQuote, error) {
	return readThrough(ctx, c, domrepo.TableMarketData, "all", func(ctx context.Context) ([]models.PriceQuote, error) {
		return c.next.ListQuotes(ctx)
	})
}

func (c *CachedSource) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	return readThrough(ctx, c, domrepo.TableHoldings, userID, func(ctx context.Context) ([]models.Holding, error) {
		return c.next.ListHoldings(ctx, userID)
	})
}

func (c *CachedSource) ListSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	return readThrough(ctx, c, domrepo.TableSignals, limit, func(ctx context.Context) ([]models.Signal, error) {
		return c.next.ListSignals(ctx, limit)
	})
}

func (c *CachedSource) ListPredictionMarkets(ctx context.Context, limit int) ([]models.PredictionMarket, error) {
	return readThrough(ctx, c, domrepo.TablePredictions, limit, func(ctx context.Context) ([]models.PredictionMarket, error) {
		return c.next.ListPredictionMarkets(ctx, limit)
	})
}

func (c *CachedSource) ListHealth(ctx context.Context, limit int) ([]models.HealthComponent, error) {
	return readThrough(ctx, c, domrepo.TableHealth, limit, func(ctx context.Context) ([]models.HealthComponent, error) {
		return c.next.ListHealth(ctx, limit)
	})
}

func (c *CachedSource) Ping(ctx context.Context) error {
	if err := c.next.Ping(ctx); err != nil {
		c.log.Warn("data source ping failed", logger.Error(err), logger.Any("breakers", c.BreakerStates()))
		return err
	}
	return nil
}

// Invalidate drops cached entries of table. Asset changes and "" drop everything.
func (c *CachedSource) Invalidate(ctx context.Context, table string) error {
	prefix := cachePrefix + ":"
	if table != "" && table != domrepo.TableAssets {
		prefix = cache.Key(cachePrefix, table) + ":"
	}
	if err := c.cache.DeleteByPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("invalidate %s: %w", table, err)
	}
	c.log.Debug("cache invalidated", logger.String("table", table), logger.String("prefix", prefix))
	return nil
}

// BreakerStates reports each collection's breaker state.
func (c *CachedSource) BreakerStates() map[string]string {
	out := make(map[string]string, len(c.breakers))
	for name, b := range c.breakers {
		out[name] = b.State().String()
	}
	return out
}

// breakerNeutral keeps callers that hang up from tripping a breaker. An expired deadline
// still counts: the source did not answer within the budget.
func breakerNeutral(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func readThrough[T any](ctx context.Context, c *CachedSource, table string, param interface{}, fetch func(context.Context) (T, error)) (T, error) {
	key := cache.Key(cachePrefix, table, param)

	var out T
	err := c.cache.Get(ctx, key, &out)
	if err == nil {
		c.metrics.RecordCacheHit(table)
		return out, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Warn("cache read failed", logger.String("key", key), logger.Error(err))
	}
	c.metrics.RecordCacheMiss(table)

	start := time.Now()
	v, err := c.breakers[table].Execute(func() (interface{}, error) {
		return fetch(ctx)
	})
	c.metrics.RecordFetch("source", table, time.Since(start).Seconds(), err)
	if err != nil {
		var zero T
		return zero, domrepo.Unavailable(table, err)
	}
	out = v.(T)

	if err := c.cache.Set(ctx, key, out, c.ttl); err != nil {
		c.log.Warn("cache write failed", logger.String("key", key), logger.Error(err))
	}
	return out, nil
}

var (
	_ domrepo.DataSource  = (*CachedSource)(nil)
	_ domrepo.Invalidator = (*CachedSource)(nil)
)
