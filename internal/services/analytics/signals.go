package analytics

import (
	"cmp"
	"slices"

	"Symbiotic/internal/domain/models"
)

// FilterSignals keeps signals matching f, preserving input order.
func FilterSignals(signals []models.Signal, f models.SignalFilter) []models.Signal {
	out := make([]models.Signal, 0, len(signals))
	for _, s := range signals {
		if f.Kind != "" && s.Kind != f.Kind {
			continue
		}
		if f.AssetType != "" && s.Asset.Type != f.AssetType {
			continue
		}
		if s.Score < f.MinScore {
			continue
		}
		out = append(out, s)
	}
	return out
}

// RankSignals orders by score, highest first. Ties keep their input order.
func RankSignals(signals []models.Signal) []models.Signal {
	out := slices.Clone(signals)
	slices.SortStableFunc(out, func(a, b models.Signal) int { return cmp.Compare(b.Score, a.Score) })
	return out
}

// RankPredictions orders by traded volume, highest first.
func RankPredictions(markets []models.PredictionMarket) []models.PredictionMarket {
	out := slices.Clone(markets)
	slices.SortStableFunc(out, func(a, b models.PredictionMarket) int { return b.Volume.Cmp(a.Volume) })
	return out
}
