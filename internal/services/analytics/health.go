package analytics

import (
	"slices"

	"Symbiotic/internal/domain/models"
)

// HealthSummary reports the share of healthy components.
// LastUpdated is taken from the first record, so callers pass components newest first.
func HealthSummary(components []models.HealthComponent) models.HealthSummary {
	var s models.HealthSummary
	s.Total = len(components)
	for _, c := range components {
		if c.Status == models.StatusHealthy {
			s.Healthy++
		}
	}
	if s.Total > 0 {
		s.HealthyPct = float64(s.Healthy) / float64(s.Total) * 100
		s.LastUpdated = components[0].UpdatedAt
	}
	return s
}

// RankHealth orders components newest first.
func RankHealth(components []models.HealthComponent) []models.HealthComponent {
	out := slices.Clone(components)
	slices.SortStableFunc(out, func(a, b models.HealthComponent) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out
}
