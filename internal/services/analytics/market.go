package analytics

import (
	"gonum.org/v1/gonum/stat"

	"Symbiotic/internal/domain/models"
)

// MarketSummary counts quotes per asset class and averages their 24h change.
func MarketSummary(quotes []models.PriceQuote) models.MarketSummary {
	var s models.MarketSummary
	var sum float64
	for _, q := range quotes {
		s.Total++
		switch q.Asset.Type {
		case models.AssetCrypto:
			s.Crypto++
		case models.AssetStock:
			s.Stock++
		}
		sum += q.ChangePct
	}
	s.AvgChangePct = sum / float64(max(s.Total, 1))
	return s
}

// VolatilityProxy is the population standard deviation of 24h change across assets.
// It is a cross-sectional stand-in and says nothing about historical volatility.
func VolatilityProxy(quotes []models.PriceQuote) float64 {
	if len(quotes) == 0 {
		return 0
	}
	x := make([]float64, len(quotes))
	for i, q := range quotes {
		x[i] = q.ChangePct
	}
	return stat.PopStdDev(x, nil)
}
