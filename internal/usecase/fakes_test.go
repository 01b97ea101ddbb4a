package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	domsvc "Symbiotic/internal/domain/service"
)

var errDown = errors.New("connection refused")

type fakeSource struct {
	mu          sync.Mutex
	quotes      []models.PriceQuote
	holdings    map[string][]models.Holding
	signals     []models.Signal
	predictions []models.PredictionMarket
	health      []models.HealthComponent
	failing     map[string]bool
	calls       map[string]int
	invalidated []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		holdings: map[string][]models.Holding{},
		failing:  map[string]bool{},
		calls:    map[string]int{},
	}
}

func (f *fakeSource) fail(table string, on bool) {
	f.mu.Lock()
	f.failing[table] = on
	f.mu.Unlock()
}

func (f *fakeSource) hit(table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[table]++
	if f.failing[table] {
		return domrepo.Unavailable(table, errDown)
	}
	return nil
}

func (f *fakeSource) ListQuotes(context.Context) ([]models.PriceQuote, error) {
	if err := f.hit(domrepo.TableMarketData); err != nil {
		return nil, err
	}
	return f.quotes, nil
}

func (f *fakeSource) ListHoldings(_ context.Context, userID string) ([]models.Holding, error) {
	if err := f.hit(domrepo.TableHoldings); err != nil {
		return nil, err
	}
	return f.holdings[userID], nil
}

func (f *fakeSource) ListSignals(_ context.Context, limit int) ([]models.Signal, error) {
	if err := f.hit(domrepo.TableSignals); err != nil {
		return nil, err
	}
	return f.signals, nil
}

func (f *fakeSource) ListPredictionMarkets(context.Context, int) ([]models.PredictionMarket, error) {
	if err := f.hit(domrepo.TablePredictions); err != nil {
		return nil, err
	}
	return f.predictions, nil
}

func (f *fakeSource) ListHealth(context.Context, int) ([]models.HealthComponent, error) {
	if err := f.hit(domrepo.TableHealth); err != nil {
		return nil, err
	}
	return f.health, nil
}

func (f *fakeSource) Ping(context.Context) error { return nil }

func (f *fakeSource) Invalidate(_ context.Context, table string) error {
	f.mu.Lock()
	f.invalidated = append(f.invalidated, table)
	f.mu.Unlock()
	return nil
}

type failingEstimator struct{}

func (failingEstimator) Estimate(context.Context, []models.Asset, domsvc.CorrelationWindow) (models.CorrelationMatrix, error) {
	return models.CorrelationMatrix{}, errDown
}

type fakeCandles struct {
	closes map[string][]float64
	err    error
}

func (f fakeCandles) GetCandles(context.Context, string, time.Time, time.Time, domrepo.Timeframe) ([]models.Candle, error) {
	return nil, f.err
}

func (f fakeCandles) GetLatestNCandles(_ context.Context, symbol string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	closes := f.closes[symbol]
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Symbol: symbol, Close: c}
	}
	return out, nil
}

func asset(symbol string, t models.AssetType) models.Asset {
	return models.Asset{ID: symbol, Name: symbol, Symbol: symbol, Type: t, Currency: "USD"}
}

func quote(symbol string, t models.AssetType, price string, change float64) models.PriceQuote {
	return models.PriceQuote{
		Asset:     asset(symbol, t),
		Price:     decimal.RequireFromString(price),
		ChangePct: change,
	}
}

func holding(ticker, qty, avg, value string) models.Holding {
	return models.Holding{
		ID:           ticker,
		UserID:       "u1",
		Ticker:       ticker,
		Asset:        asset(ticker, models.AssetStock),
		Quantity:     decimal.RequireFromString(qty),
		AveragePrice: decimal.RequireFromString(avg),
		CurrentValue: decimal.RequireFromString(value),
	}
}

func seededSource() *fakeSource {
	f := newFakeSource()
	f.quotes = []models.PriceQuote{
		quote("BTC", models.AssetCrypto, "50000", 5),
		quote("AAPL", models.AssetStock, "200", -3),
	}
	f.holdings["u1"] = []models.Holding{
		holding("AAPL", "4", "150", "800"),
		holding("MSFT", "1", "150", "200"),
	}
	f.signals = []models.Signal{
		{ID: "s1", Asset: asset("AAPL", models.AssetStock), Kind: models.SignalBuy, Score: 40},
		{ID: "s2", Asset: asset("BTC", models.AssetCrypto), Kind: models.SignalBuy, Score: 90},
		{ID: "s3", Asset: asset("ETH", models.AssetCrypto), Kind: models.SignalSell, Score: 70},
	}
	f.predictions = []models.PredictionMarket{
		{ID: "p1", Title: "small", Volume: decimal.NewFromInt(10)},
		{ID: "p2", Title: "large", Volume: decimal.NewFromInt(1000)},
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.health = []models.HealthComponent{
		{Component: "db", Status: models.StatusHealthy, UpdatedAt: now},
		{Component: "api", Status: models.StatusDegraded, UpdatedAt: now.Add(-time.Minute)},
	}
	return f
}
