package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Symbiotic/internal/handler/realtime"
	"Symbiotic/internal/usecase"
	"Symbiotic/pkg/config"
	xhttp "Symbiotic/pkg/http"
	pkgkafka "Symbiotic/pkg/kafka"
	"Symbiotic/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *logger.Logger
	httpHandler xhttp.Handler
	uc          *usecase.DashboardUseCase
	refresher   *usecase.Refresher
	hub         *realtime.Hub
	consumer    *pkgkafka.Consumer
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies. consumer may be nil.
func New(
	cfg *config.Config,
	l *logger.Logger,
	h xhttp.Handler,
	uc *usecase.DashboardUseCase,
	refresher *usecase.Refresher,
	hub *realtime.Hub,
	consumer *pkgkafka.Consumer,
) *App {
	return &App{
		cfg:         cfg,
		log:         l,
		httpHandler: h,
		uc:          uc,
		refresher:   refresher,
		hub:         hub,
		consumer:    consumer,
	}
}

// Run starts the application and blocks until ctx is done or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS, a.cfg.Server.CORSOrigins...),
		xhttp.WithSlowRequest(a.cfg.Server.SlowRequest),
		xhttp.WithLogger(a.log),
		xhttp.WithHealthCheck(a.uc.Ping, a.cfg.Server.HealthTimeout),
		xhttp.WithBodyLimit(a.cfg.Server.BodyLimit),
	)

	go a.refresher.Run(ctx)

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", logger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started",
			logger.String("topic", a.cfg.Kafka.InvalidationTopic),
			logger.Strings("brokers", a.cfg.Kafka.Brokers),
		)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		return err
	}
	a.log.Info("dashboard started",
		logger.String("source", a.cfg.Source.Backend),
		logger.String("cache", a.cfg.Cache.Backend),
		logger.Bool("kafka", a.cfg.Kafka.Enabled),
		logger.Bool("historical_correlation", a.cfg.Correlation.Historical),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.hub.Close()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
