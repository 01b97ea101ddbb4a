// Package charts reshapes records and metrics into the rows chart widgets consume.
package charts

import (
	"Symbiotic/internal/domain/models"
)

// Fixed display colours per asset class.
const (
	ColorCrypto = "#f7931a"
	ColorStock  = "#4285f4"
)

// Gauge layout for the concentration score.
const (
	GaugeThreshold = 75.0
	gaugeMax       = 100.0
)

var riskBands = []models.GaugeBand{
	{From: 0, To: 33, Color: "green"},
	{From: 33, To: 66, Color: "yellow"},
	{From: 66, To: 100, Color: "red"},
}

// ColorFor looks up the display colour for an asset class.
func ColorFor(t models.AssetType) string {
	if t == models.AssetCrypto {
		return ColorCrypto
	}
	return ColorStock
}

// PriceChangeBars emits one row per quote for the price-change bar chart and histogram.
func PriceChangeBars(quotes []models.PriceQuote) []models.BarRow {
	rows := make([]models.BarRow, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, models.BarRow{
			Name:      q.Asset.Name,
			ChangePct: q.ChangePct,
			AssetType: q.Asset.Type,
			Color:     ColorFor(q.Asset.Type),
		})
	}
	return rows
}

// AllocationPie emits one slice per positively valued holding.
func AllocationPie(holdings []models.Holding) []models.PieSlice {
	slices := make([]models.PieSlice, 0, len(holdings))
	for _, h := range holdings {
		if !h.CurrentValue.IsPositive() {
			continue
		}
		slices = append(slices, models.PieSlice{AssetName: h.Asset.Name, Value: h.CurrentValue})
	}
	return slices
}

// ConcentrationGauge wraps a 0-100 score with the fixed risk bands.
func ConcentrationGauge(score float64) models.Gauge {
	bands := make([]models.GaugeBand, len(riskBands))
	copy(bands, riskBands)
	return models.Gauge{
		Value:     min(max(score, 0), gaugeMax),
		Bands:     bands,
		Threshold: GaugeThreshold,
	}
}
