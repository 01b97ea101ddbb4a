package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MarketSummary struct {
	Total        int     `json:"total"`
	Crypto       int     `json:"crypto"`
	Stock        int     `json:"stock"`
	AvgChangePct float64 `json:"avg_change_pct"`
}

type PortfolioSummary struct {
	TotalValue     decimal.Decimal `json:"total_value"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	TotalGain      decimal.Decimal `json:"total_gain"`
	TotalGainPct   float64         `json:"total_gain_pct"`
	ActiveHoldings int             `json:"active_holdings"`
}

// RiskLevel classifies a concentration score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

type ConcentrationRisk struct {
	Score        float64   `json:"score"`
	MaxWeightPct float64   `json:"max_weight_pct"`
	Level        RiskLevel `json:"level"`
}

type HealthSummary struct {
	Healthy     int       `json:"healthy"`
	Total       int       `json:"total"`
	HealthyPct  float64   `json:"healthy_pct"`
	LastUpdated time.Time `json:"last_updated"`
}
