package repository

import (
	"context"
	"strings"
	"time"

	"Symbiotic/internal/domain/models"
)

// Timeframe is a candle bucket width as stored in the candles table.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF1d  Timeframe = "1d"
)

var timeframeWidths = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF1h:  time.Hour,
	TF1d:  24 * time.Hour,
}

func (tf Timeframe) Valid() bool {
	_, ok := timeframeWidths[tf]
	return ok
}

// Duration is the bucket width; unknown timeframes count as an hour.
func (tf Timeframe) Duration() time.Duration {
	if d, ok := timeframeWidths[tf]; ok {
		return d
	}
	return time.Hour
}

// NormalizeTimeframe maps user input ("1H", " 15m") to a Timeframe, falling back to TF1h.
func NormalizeTimeframe(s string) Timeframe {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if tf.Valid() {
		return tf
	}
	return TF1h
}

// CandleStore provides read-only access to historical candles for return series.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}
