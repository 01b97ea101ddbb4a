package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	domsvc "Symbiotic/internal/domain/service"
	"Symbiotic/internal/services/charts"
	"Symbiotic/internal/services/features"
)

// ErrInsufficientHistory means no asset had enough candles to correlate.
var ErrInsufficientHistory = errors.New("insufficient price history")

const minReturns = 2

// HistoricalEstimator correlates log returns of recent candles from the candle store.
type HistoricalEstimator struct {
	store domrepo.CandleStore
}

func NewHistoricalEstimator(store domrepo.CandleStore) *HistoricalEstimator {
	return &HistoricalEstimator{store: store}
}

func (e *HistoricalEstimator) Estimate(ctx context.Context, assets []models.Asset, w domsvc.CorrelationWindow) (models.CorrelationMatrix, error) {
	if w.N <= 0 {
		w.N = 200
	}
	tf := domrepo.NormalizeTimeframe(string(w.Timeframe))

	labels := make([]string, len(assets))
	series := make([][]float64, len(assets))
	errs := make([]error, len(assets))

	var wg sync.WaitGroup
	for i, a := range assets {
		labels[i] = a.Symbol
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			cs, err := e.store.GetLatestNCandles(ctx, symbol, w.N, tf)
			if err != nil {
				errs[i] = fmt.Errorf("candles %s: %w", symbol, err)
				return
			}
			series[i] = features.ComputeLogReturns(cs)
		}(i, a.Symbol)
	}
	wg.Wait()

	aligned := features.AlignTails(series, minReturns)
	usable := 0
	for _, s := range aligned {
		if s != nil {
			usable++
		}
	}
	if usable < 2 && len(assets) > 1 {
		if err := errors.Join(errs...); err != nil {
			return models.CorrelationMatrix{}, fmt.Errorf("estimate correlation: %w", err)
		}
		return models.CorrelationMatrix{}, ErrInsufficientHistory
	}
	return charts.HistoricalCorrelation(labels, aligned), nil
}

// SyntheticEstimator returns the placeholder matrix. It never fails.
type SyntheticEstimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSyntheticEstimator(seed int64) *SyntheticEstimator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticEstimator{rng: rand.New(rand.NewSource(seed))}
}

func (e *SyntheticEstimator) Estimate(_ context.Context, assets []models.Asset, _ domsvc.CorrelationWindow) (models.CorrelationMatrix, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return charts.SyntheticCorrelation(assets, e.rng), nil
}

var (
	_ domsvc.CorrelationEstimator = (*HistoricalEstimator)(nil)
	_ domsvc.CorrelationEstimator = (*SyntheticEstimator)(nil)
)
