package models

import "github.com/shopspring/decimal"

// BarRow is one asset in the price-change bar chart or histogram.
type BarRow struct {
	Name      string    `json:"name"`
	ChangePct float64   `json:"change_pct"`
	AssetType AssetType `json:"asset_type"`
	Color     string    `json:"color"`
}

// PieSlice is one positively valued holding in the allocation chart.
type PieSlice struct {
	AssetName string          `json:"asset_name"`
	Value     decimal.Decimal `json:"value"`
}

type GaugeBand struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

type Gauge struct {
	Value     float64     `json:"value"`
	Bands     []GaugeBand `json:"bands"`
	Threshold float64     `json:"threshold"`
}

// CorrelationMatrix is a symmetric matrix with unit diagonal.
// Synthetic is true when values are a generated placeholder rather than historical.
type CorrelationMatrix struct {
	Labels    []string    `json:"labels"`
	Values    [][]float64 `json:"values"`
	Synthetic bool        `json:"synthetic"`
}

type ChartSet struct {
	PriceChanges []BarRow           `json:"price_changes"`
	Allocation   []PieSlice         `json:"allocation"`
	Risk         Gauge              `json:"risk"`
	Correlation  *CorrelationMatrix `json:"correlation,omitempty"`
}
