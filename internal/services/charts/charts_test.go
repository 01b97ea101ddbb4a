package charts

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Symbiotic/internal/domain/models"
	"Symbiotic/internal/services/analytics"
)

func TestPriceChangeBars(t *testing.T) {
	rows := PriceChangeBars([]models.PriceQuote{
		{Asset: models.Asset{Name: "Bitcoin", Type: models.AssetCrypto}, ChangePct: 5},
		{Asset: models.Asset{Name: "Apple", Type: models.AssetStock}, ChangePct: -3},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, models.BarRow{Name: "Bitcoin", ChangePct: 5, AssetType: models.AssetCrypto, Color: "#f7931a"}, rows[0])
	assert.Equal(t, "#4285f4", rows[1].Color)
	assert.Empty(t, PriceChangeBars(nil))
}

func TestAllocationPie_SumsToPositiveTotal(t *testing.T) {
	holdings := []models.Holding{
		{Asset: models.Asset{Name: "A"}, Quantity: decimal.NewFromInt(1), CurrentValue: decimal.NewFromInt(800)},
		{Asset: models.Asset{Name: "B"}, Quantity: decimal.NewFromInt(1), CurrentValue: decimal.NewFromInt(200)},
		{Asset: models.Asset{Name: "C"}, Quantity: decimal.NewFromInt(1), CurrentValue: decimal.Zero},
		{Asset: models.Asset{Name: "D"}, Quantity: decimal.NewFromInt(1), CurrentValue: decimal.NewFromInt(-50)},
	}
	slices := AllocationPie(holdings)
	require.Len(t, slices, 2)

	sum := decimal.Zero
	for _, s := range slices {
		assert.True(t, s.Value.IsPositive())
		sum = sum.Add(s.Value)
	}
	positive := analytics.PortfolioSummary(holdings[:2]).TotalValue
	assert.True(t, sum.Equal(positive), "%s != %s", sum, positive)
}

func TestConcentrationGauge(t *testing.T) {
	g := ConcentrationGauge(42)
	assert.Equal(t, 42.0, g.Value)
	assert.Equal(t, 75.0, g.Threshold)
	require.Len(t, g.Bands, 3)
	assert.Equal(t, models.GaugeBand{From: 0, To: 33, Color: "green"}, g.Bands[0])
	assert.Equal(t, models.GaugeBand{From: 33, To: 66, Color: "yellow"}, g.Bands[1])
	assert.Equal(t, models.GaugeBand{From: 66, To: 100, Color: "red"}, g.Bands[2])
	assert.Equal(t, 100.0, ConcentrationGauge(140).Value)

	g.Bands[0].Color = "blue"
	assert.Equal(t, "green", ConcentrationGauge(1).Bands[0].Color)
}

func assertValidMatrix(t *testing.T, m models.CorrelationMatrix) {
	t.Helper()
	n := len(m.Labels)
	require.Len(t, m.Values, n)
	for i := 0; i < n; i++ {
		require.Len(t, m.Values[i], n)
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := 0; j < n; j++ {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
			assert.GreaterOrEqual(t, m.Values[i][j], -1.0)
			assert.LessOrEqual(t, m.Values[i][j], 1.0)
		}
	}
}

func TestSyntheticCorrelation(t *testing.T) {
	assets := []models.Asset{
		{Symbol: "BTC", Type: models.AssetCrypto},
		{Symbol: "ETH", Type: models.AssetCrypto},
		{Symbol: "AAPL", Type: models.AssetStock},
		{Symbol: "MSFT", Type: models.AssetStock},
	}
	m := SyntheticCorrelation(assets, rand.New(rand.NewSource(7)))
	assert.True(t, m.Synthetic)
	assert.Equal(t, []string{"BTC", "ETH", "AAPL", "MSFT"}, m.Labels)
	assertValidMatrix(t, m)

	assert.InDelta(t, 0.6, m.Values[0][1], 0.2+1e-9)
	assert.InDelta(t, 0.4, m.Values[2][3], 0.2+1e-9)
	assert.InDelta(t, 0.1, m.Values[0][2], 0.2+1e-9)

	empty := SyntheticCorrelation(nil, rand.New(rand.NewSource(1)))
	assert.Empty(t, empty.Values)
}

func TestHistoricalCorrelation(t *testing.T) {
	a := []float64{0.01, -0.02, 0.03, 0.005, -0.01}
	b := []float64{0.02, -0.04, 0.06, 0.01, -0.02}
	c := []float64{-0.01, 0.02, -0.03, -0.005, 0.01}
	flat := []float64{0, 0, 0, 0}

	m := HistoricalCorrelation([]string{"A", "B", "C", "F", "S"}, [][]float64{a, b, c, flat, {0.1}})
	assert.False(t, m.Synthetic)
	assertValidMatrix(t, m)
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-9)
	assert.InDelta(t, -1.0, m.Values[0][2], 1e-9)
	assert.Equal(t, 0.0, m.Values[0][3])
	assert.Equal(t, 0.0, m.Values[0][4])
}
