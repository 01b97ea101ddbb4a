package repository

import (
	"context"

	"Symbiotic/internal/domain/models"
)

// Table names in the backend store.
const (
	TableAssets      = "assets"
	TableMarketData  = "market_data"
	TableHoldings    = "holdings"
	TableSignals     = "trading_signals"
	TablePredictions = "prediction_markets"
	TableHealth      = "system_health"
)

// Tables lists every collection the dashboard reads.
var Tables = []string{TableAssets, TableMarketData, TableHoldings, TableSignals, TablePredictions, TableHealth}

// DataSource is the read-only gateway to the dashboard's backend store.
// Results are normalised: nullable numerics are zero and missing text is "Unknown".
type DataSource interface {
	ListQuotes(ctx context.Context) ([]models.PriceQuote, error)
	ListHoldings(ctx context.Context, userID string) ([]models.Holding, error)
	ListSignals(ctx context.Context, limit int) ([]models.Signal, error)
	ListPredictionMarkets(ctx context.Context, limit int) ([]models.PredictionMarket, error)
	ListHealth(ctx context.Context, limit int) ([]models.HealthComponent, error)
	Ping(ctx context.Context) error
}

// Invalidator drops cached collections for a table ("" drops everything).
type Invalidator interface {
	Invalidate(ctx context.Context, table string) error
}

// SnapshotPublisher emits a compact event after each refresh.
type SnapshotPublisher interface {
	Publish(ctx context.Context, ev models.SnapshotEvent) error
	Close() error
}

type Metrics interface {
	RecordFetch(source, table string, seconds float64, err error)
	RecordCacheHit(table string)
	RecordCacheMiss(table string)
	RecordStale(table string)
	RecordRefresh(seconds float64, warnings int)
	RecordPortfolioValue(userID string, value float64)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordFetch(string, string, float64, error) {}
func (NopMetrics) RecordCacheHit(string)                      {}
func (NopMetrics) RecordCacheMiss(string)                     {}
func (NopMetrics) RecordStale(string)                         {}
func (NopMetrics) RecordRefresh(float64, int)                 {}
func (NopMetrics) RecordPortfolioValue(string, float64)       {}
