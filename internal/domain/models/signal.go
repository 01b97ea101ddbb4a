package models

import (
	"strings"
	"time"
)

// SignalKind is the recommendation carried by a trading signal.
type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
	SignalHold SignalKind = "HOLD"
)

// ParseSignalKind matches BUY/SELL/HOLD case-insensitively.
func ParseSignalKind(s string) (SignalKind, bool) {
	switch SignalKind(strings.ToUpper(strings.TrimSpace(s))) {
	case SignalBuy:
		return SignalBuy, true
	case SignalSell:
		return SignalSell, true
	case SignalHold:
		return SignalHold, true
	default:
		return "", false
	}
}

// Signal is an automated recommendation with a 0-100 confidence score.
type Signal struct {
	ID        string     `json:"id"`
	Asset     Asset      `json:"asset"`
	Kind      SignalKind `json:"kind"`
	Score     int        `json:"score"`
	RSI       float64    `json:"rsi"`
	Reasoning string     `json:"reasoning,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SignalFilter selects signals. Empty Kind or AssetType means no filter on that field.
type SignalFilter struct {
	Kind      SignalKind `json:"kind,omitempty"`
	AssetType AssetType  `json:"asset_type,omitempty"`
	MinScore  int        `json:"min_score"`
}
