package analytics

import (
	"strings"

	"github.com/shopspring/decimal"

	"Symbiotic/internal/domain/models"
)

// MinAveragePrice floors the denominator of HoldingGainPct so a zero average price yields a finite result.
var MinAveragePrice = decimal.RequireFromString("0.01")

const (
	// ConcentrationMultiplier scales the dominant holding's share into a risk score.
	ConcentrationMultiplier = 1.5
	// MaxRiskScore caps the concentration score.
	MaxRiskScore = 100.0

	mediumRiskFrom = 33.0
	highRiskFrom   = 66.0
)

var hundred = decimal.NewFromInt(100)

// PortfolioSummary totals value and cost across holdings.
func PortfolioSummary(holdings []models.Holding) models.PortfolioSummary {
	var s models.PortfolioSummary
	for _, h := range holdings {
		s.TotalValue = s.TotalValue.Add(h.CurrentValue)
		s.TotalCost = s.TotalCost.Add(h.CostBasis())
		if h.Quantity.IsPositive() {
			s.ActiveHoldings++
		}
	}
	s.TotalGain = s.TotalValue.Sub(s.TotalCost)
	if s.TotalCost.IsPositive() {
		s.TotalGainPct = s.TotalGain.Div(s.TotalCost).Mul(hundred).InexactFloat64()
	}
	return s
}

// HoldingGainPct is the percentage move of the current price over the average price.
func HoldingGainPct(h models.Holding) float64 {
	avg := decimal.Max(h.AveragePrice, MinAveragePrice)
	return h.CurrentPrice.Div(avg).Sub(decimal.NewFromInt(1)).Mul(hundred).InexactFloat64()
}

// ConcentrationRisk scores how much of the portfolio sits in its largest position.
func ConcentrationRisk(holdings []models.Holding) models.ConcentrationRisk {
	total := decimal.Zero
	largest := decimal.Zero
	for _, h := range holdings {
		if !h.CurrentValue.IsPositive() {
			continue
		}
		total = total.Add(h.CurrentValue)
		if h.CurrentValue.GreaterThan(largest) {
			largest = h.CurrentValue
		}
	}
	if !total.IsPositive() {
		return models.ConcentrationRisk{Level: models.RiskLow}
	}
	maxPct := largest.Div(total).Mul(hundred).InexactFloat64()
	score := clamp(maxPct*ConcentrationMultiplier, 0, MaxRiskScore)
	return models.ConcentrationRisk{
		Score:        score,
		MaxWeightPct: maxPct,
		Level:        RiskLevelFor(score),
	}
}

// RiskLevelFor maps a 0-100 score to a level.
func RiskLevelFor(score float64) models.RiskLevel {
	switch {
	case score < mediumRiskFrom:
		return models.RiskLow
	case score < highRiskFrom:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// ResolveCurrentPrices returns a copy of holdings with CurrentPrice taken from the quote
// for the same symbol and CurrentValue revalued at quantity × that price, so gain, weight
// and totals all use one price. Holdings without a quote keep their average price,
// their stored CurrentValue and PriceIsLive=false.
func ResolveCurrentPrices(holdings []models.Holding, quotes []models.PriceQuote) []models.Holding {
	prices := make(map[string]decimal.Decimal, len(quotes))
	for _, q := range quotes {
		key := strings.ToUpper(q.Asset.Symbol)
		if _, ok := prices[key]; !ok {
			prices[key] = q.Price
		}
	}
	out := make([]models.Holding, len(holdings))
	for i, h := range holdings {
		price, ok := prices[strings.ToUpper(h.Asset.Symbol)]
		if !ok {
			price, ok = prices[strings.ToUpper(h.Ticker)]
		}
		if ok {
			h.CurrentPrice = price
			h.CurrentValue = h.Quantity.Mul(price)
			h.PriceIsLive = true
		} else {
			h.CurrentPrice = h.AveragePrice
			h.PriceIsLive = false
		}
		out[i] = h
	}
	return out
}

// HoldingBreakdown derives per-position cost basis, gain and weight.
// Weight is the share of the positive total value; non-positive holdings weigh 0.
func HoldingBreakdown(holdings []models.Holding) []models.HoldingView {
	total := decimal.Zero
	for _, h := range holdings {
		if h.CurrentValue.IsPositive() {
			total = total.Add(h.CurrentValue)
		}
	}
	out := make([]models.HoldingView, 0, len(holdings))
	for _, h := range holdings {
		v := models.HoldingView{
			Holding:   h,
			CostBasis: h.CostBasis(),
			GainPct:   HoldingGainPct(h),
		}
		if total.IsPositive() && h.CurrentValue.IsPositive() {
			v.WeightPct = h.CurrentValue.Div(total).Mul(hundred).InexactFloat64()
		}
		out = append(out, v)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
