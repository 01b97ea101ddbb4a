package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a single price observation for an asset at fetch time.
type PriceQuote struct {
	Asset     Asset           `json:"asset"`
	Price     decimal.Decimal `json:"price"`
	ChangePct float64         `json:"change_pct"`
	RSI       float64         `json:"rsi"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	UpdatedAt time.Time       `json:"updated_at"`
}
