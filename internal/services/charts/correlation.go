package charts

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"Symbiotic/internal/domain/models"
)

// Asset-class priors for the synthetic matrix.
const (
	priorCryptoCrypto = 0.6
	priorStockStock   = 0.4
	priorCross        = 0.1
	perturbation      = 0.2
)

// SyntheticCorrelation builds a placeholder matrix: a per-class prior plus uniform noise.
// It carries no historical information and is always flagged Synthetic.
func SyntheticCorrelation(assets []models.Asset, rng *rand.Rand) models.CorrelationMatrix {
	n := len(assets)
	m := newMatrix(labelsOf(assets))
	m.Synthetic = true
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := prior(assets[i].Type, assets[j].Type) + (rng.Float64()*2-1)*perturbation
			m.Values[i][j] = clampUnit(v)
			m.Values[j][i] = m.Values[i][j]
		}
	}
	return m
}

// HistoricalCorrelation computes pairwise Pearson correlation of aligned return series.
// Pairs with fewer than two common samples or zero variance get 0.
func HistoricalCorrelation(labels []string, returns [][]float64) models.CorrelationMatrix {
	m := newMatrix(labels)
	n := len(labels)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var a, b []float64
			if i < len(returns) {
				a = returns[i]
			}
			if j < len(returns) {
				b = returns[j]
			}
			k := min(len(a), len(b))
			if k < 2 {
				continue
			}
			x, y := a[len(a)-k:], b[len(b)-k:]
			if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
				continue
			}
			v := clampUnit(stat.Correlation(x, y, nil))
			m.Values[i][j] = v
			m.Values[j][i] = v
		}
	}
	return m
}

func newMatrix(labels []string) models.CorrelationMatrix {
	n := len(labels)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1
	}
	return models.CorrelationMatrix{Labels: labels, Values: values}
}

func labelsOf(assets []models.Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Symbol
	}
	return out
}

func prior(a, b models.AssetType) float64 {
	switch {
	case a == models.AssetCrypto && b == models.AssetCrypto:
		return priorCryptoCrypto
	case a == models.AssetStock && b == models.AssetStock:
		return priorStockStock
	default:
		return priorCross
	}
}

func clampUnit(v float64) float64 {
	if v != v {
		return 0
	}
	return min(max(v, -1), 1)
}
