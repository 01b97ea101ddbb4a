package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Symbiotic/internal/domain/models"
	domsvc "Symbiotic/internal/domain/service"
)

func TestHistoricalEstimator_InsufficientHistory(t *testing.T) {
	store := fakeCandles{closes: map[string][]float64{"BTC": {1, 2, 3}}}
	e := NewHistoricalEstimator(store)

	_, err := e.Estimate(context.Background(), []models.Asset{
		asset("BTC", models.AssetCrypto),
		asset("ETH", models.AssetCrypto),
	}, domsvc.CorrelationWindow{})
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestHistoricalEstimator_StoreError(t *testing.T) {
	boom := errors.New("clickhouse down")
	e := NewHistoricalEstimator(fakeCandles{err: boom})

	_, err := e.Estimate(context.Background(), []models.Asset{
		asset("BTC", models.AssetCrypto),
		asset("ETH", models.AssetCrypto),
	}, domsvc.CorrelationWindow{N: 10})
	assert.ErrorIs(t, err, boom)
}

func TestHistoricalEstimator_ShortSeriesCorrelateZero(t *testing.T) {
	store := fakeCandles{closes: map[string][]float64{
		"BTC": {100, 101, 103, 102},
		"ETH": {10, 9, 11, 10},
		"SOL": {5},
	}}
	m, err := NewHistoricalEstimator(store).Estimate(context.Background(), []models.Asset{
		asset("BTC", models.AssetCrypto),
		asset("ETH", models.AssetCrypto),
		asset("SOL", models.AssetCrypto),
	}, domsvc.CorrelationWindow{N: 4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Values[0][2])
	assert.Equal(t, 1.0, m.Values[2][2])
	assert.LessOrEqual(t, m.Values[0][1], 1.0)
	assert.GreaterOrEqual(t, m.Values[0][1], -1.0)
}

func TestSyntheticEstimator_Labelled(t *testing.T) {
	m, err := NewSyntheticEstimator(1).Estimate(context.Background(), []models.Asset{
		asset("BTC", models.AssetCrypto),
		asset("AAPL", models.AssetStock),
	}, domsvc.CorrelationWindow{})
	require.NoError(t, err)
	assert.True(t, m.Synthetic)
	assert.Equal(t, m.Values[0][1], m.Values[1][0])
}
