package models

import "github.com/shopspring/decimal"

// Holding is a user's position in an asset.
//
// CurrentPrice is resolved against live quotes by the metrics engine, which also revalues
// CurrentValue as Quantity × CurrentPrice. When no quote matches the ticker CurrentPrice
// carries the average purchase price, CurrentValue keeps the stored column and PriceIsLive is false.
type Holding struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Ticker       string          `json:"ticker"`
	Asset        Asset           `json:"asset"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	PriceIsLive  bool            `json:"price_is_live"`
}

// CostBasis is always recomputed from quantity and average price.
func (h Holding) CostBasis() decimal.Decimal {
	return h.AveragePrice.Mul(h.Quantity)
}

// HoldingView is a holding with its per-position derived values.
type HoldingView struct {
	Holding
	CostBasis decimal.Decimal `json:"cost_basis"`
	GainPct   float64         `json:"gain_pct"`
	WeightPct float64         `json:"weight_pct"`
}
