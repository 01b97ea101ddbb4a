package service

import (
	"context"

	"Symbiotic/internal/domain/models"
	"Symbiotic/internal/domain/repository"
)

// CorrelationWindow is the history an estimator may look at.
type CorrelationWindow struct {
	N         int
	Timeframe repository.Timeframe
}

// CorrelationEstimator produces a correlation matrix across the given assets.
type CorrelationEstimator interface {
	Estimate(ctx context.Context, assets []models.Asset, w CorrelationWindow) (models.CorrelationMatrix, error)
}
