package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PredictionMarket carries the implied probability of an event outcome.
type PredictionMarket struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Probability float64         `json:"probability"`
	Volume      decimal.Decimal `json:"volume"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
}
