package features

import (
	"math"
	"time"

	"Symbiotic/internal/domain/models"
	"Symbiotic/internal/domain/repository"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// AlignTails trims every series to the length of the shortest one, keeping the most recent values.
// Series shorter than minLen are returned as nil and excluded from the common length.
func AlignTails(series [][]float64, minLen int) [][]float64 {
	n := -1
	for _, s := range series {
		if len(s) < minLen {
			continue
		}
		if n < 0 || len(s) < n {
			n = len(s)
		}
	}
	out := make([][]float64, len(series))
	if n < 0 {
		return out
	}
	for i, s := range series {
		if len(s) < minLen {
			continue
		}
		out[i] = s[len(s)-n:]
	}
	return out
}

// AlignFromTo rounds time range to candle boundaries based on timeframe.
func AlignFromTo(from, to time.Time, tf repository.Timeframe) (time.Time, time.Time) {
	d := tf.Duration()
	return from.Truncate(d), to.Truncate(d)
}
