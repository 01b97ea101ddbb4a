//go:build wireinject
// +build wireinject

package di

import (
	"Symbiotic/internal/usecase"
	"Symbiotic/pkg/config"
	"Symbiotic/pkg/logger"
	"Symbiotic/pkg/server"

	"github.com/google/wire"
)

var sourceSet = wire.NewSet(
	ProvideMetrics,
	ProvideBaseSource,
	ProvideCache,
	ProvideCachedSource,
	ProvideCorrelationEstimator,
	ProvideDashboardUseCase,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		sourceSet,

		// Transport
		ProvideHub,
		ProvideRateLimiter,
		ProvideDashboardHandler,

		// Events
		ProvideSnapshotPublisher,
		ProvideRefresher,
		ProvideKafkaConsumer,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeDashboard wires only what a one-off snapshot needs.
func InitializeDashboard(cfg *config.Config, l *logger.Logger) (*usecase.DashboardUseCase, func(), error) {
	wire.Build(sourceSet)
	return nil, nil, nil
}
