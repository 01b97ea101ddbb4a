package models

import "time"

// Warning reports a degraded section of a snapshot (failed fetch, stale data, mock chart).
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
	Stale   bool   `json:"stale,omitempty"`
}

// MarketView groups quotes with their aggregates.
type MarketView struct {
	Quotes     []PriceQuote  `json:"quotes"`
	Summary    MarketSummary `json:"summary"`
	Volatility float64       `json:"volatility"`
	Bars       []BarRow      `json:"bars"`
}

type PortfolioView struct {
	Holdings      []HoldingView     `json:"holdings"`
	Summary       PortfolioSummary  `json:"summary"`
	Concentration ConcentrationRisk `json:"concentration"`
	Allocation    []PieSlice        `json:"allocation"`
	Risk          Gauge             `json:"risk"`
}

type HealthView struct {
	Components []HealthComponent `json:"components"`
	Summary    HealthSummary     `json:"summary"`
}

// DashboardSnapshot is the full result of one refresh cycle.
type DashboardSnapshot struct {
	UserID      string             `json:"user_id,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
	Market      MarketView         `json:"market"`
	Portfolio   PortfolioView      `json:"portfolio"`
	Signals     []Signal           `json:"signals"`
	Predictions []PredictionMarket `json:"predictions"`
	Health      HealthView         `json:"health"`
	Charts      ChartSet           `json:"charts"`
	Warnings    []Warning          `json:"warnings,omitempty"`
}

// SnapshotEvent is the compact summary published after each refresh.
type SnapshotEvent struct {
	UserID        string    `json:"user_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	TotalValue    string    `json:"total_value"`
	TotalGainPct  float64   `json:"total_gain_pct"`
	Concentration float64   `json:"concentration"`
	RiskLevel     RiskLevel `json:"risk_level"`
	AvgChangePct  float64   `json:"avg_change_pct"`
	HealthyPct    float64   `json:"healthy_pct"`
	WarningCount  int       `json:"warning_count"`
}

// NewSnapshotEvent condenses a snapshot for publishing.
func NewSnapshotEvent(s *DashboardSnapshot) SnapshotEvent {
	return SnapshotEvent{
		UserID:        s.UserID,
		GeneratedAt:   s.GeneratedAt,
		TotalValue:    s.Portfolio.Summary.TotalValue.StringFixed(2),
		TotalGainPct:  s.Portfolio.Summary.TotalGainPct,
		Concentration: s.Portfolio.Concentration.Score,
		RiskLevel:     s.Portfolio.Concentration.Level,
		AvgChangePct:  s.Market.Summary.AvgChangePct,
		HealthyPct:    s.Health.Summary.HealthyPct,
		WarningCount:  len(s.Warnings),
	}
}
