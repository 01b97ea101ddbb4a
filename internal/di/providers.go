package di

import (
	"context"
	"fmt"
	"time"

	"Symbiotic/internal/domain/repository"
	domsvc "Symbiotic/internal/domain/service"
	"Symbiotic/internal/handler/api"
	"Symbiotic/internal/handler/realtime"
	internalrepo "Symbiotic/internal/repository"
	"Symbiotic/internal/service/ratelimit"
	"Symbiotic/internal/usecase"
	"Symbiotic/pkg/cache"
	pkgch "Symbiotic/pkg/clickhouse"
	"Symbiotic/pkg/config"
	pkgkafka "Symbiotic/pkg/kafka"
	"Symbiotic/pkg/logger"
	"Symbiotic/pkg/metrics"
	pkgpg "Symbiotic/pkg/postgres"
	"Symbiotic/pkg/server"
)

// BaseSource is the uncached data source; the cached decorator wraps it.
type BaseSource repository.DataSource

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBaseSource connects to Supabase REST or directly to Postgres.
func ProvideBaseSource(cfg *config.Config, l *logger.Logger) (BaseSource, func(), error) {
	switch cfg.Source.Backend {
	case "postgres":
		pg, err := pkgpg.NewClient(
			pkgpg.WithDSN(cfg.Source.DatabaseURL),
			pkgpg.WithMaxConnections(cfg.Source.MaxConns, cfg.Source.MaxConns/2),
			pkgpg.WithConnMaxLifetime(cfg.Source.ConnMaxLife),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres client: %w", err)
		}
		cleanup := func() {
			if err := pg.Close(); err != nil {
				l.Warn("postgres close error", logger.Error(err))
			}
		}
		return internalrepo.NewPostgresSource(pg), cleanup, nil
	default:
		src, err := internalrepo.NewPostgRESTSource(cfg.Source.SupabaseURL, cfg.Source.SupabaseKey,
			internalrepo.WithRESTAttempts(cfg.Source.Attempts),
			internalrepo.WithRESTTimeout(cfg.Source.Timeout),
			internalrepo.WithRESTLogger(l),
		)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}
}

// ProvideCache builds the collection cache selected by cache.backend.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if cfg.Cache.Backend == "memory" {
		c := cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryCleanup(cfg.Cache.MemoryCleanup),
		)
		return c, func() { _ = c.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdleConns, cfg.Cache.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	if cfg.Cache.Backend == "redis" {
		return rc, func() { _ = rc.Close() }, nil
	}
	lc := cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(cfg.Cache.TTL/3),
	)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideCachedSource wraps the base source with the read-through cache and breakers.
func ProvideCachedSource(cfg *config.Config, base BaseSource, c cache.Service, m repository.Metrics, l *logger.Logger) *internalrepo.CachedSource {
	return internalrepo.NewCachedSource(base, c, cfg.Cache.TTL, internalrepo.BreakerConfig{
		MaxFailures: cfg.Cache.Breaker.MaxFailures,
		OpenTimeout: cfg.Cache.Breaker.OpenTimeout,
	}, m, l)
}

// ProvideCorrelationEstimator returns the ClickHouse-backed estimator when historical
// correlation is enabled, nil otherwise (the synthetic matrix is then used).
func ProvideCorrelationEstimator(cfg *config.Config, l *logger.Logger) (domsvc.CorrelationEstimator, func(), error) {
	if !cfg.Correlation.Historical {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if cfg.ClickHouse.InitSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.InitSchema(ctx, internalrepo.CandleSchema); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", logger.Error(err))
		}
	}
	return usecase.NewHistoricalEstimator(internalrepo.NewCHCandleStore(client, l)), cleanup, nil
}

// ProvideDashboardUseCase builds the orchestrator over the cached source.
func ProvideDashboardUseCase(cfg *config.Config, src *internalrepo.CachedSource, est domsvc.CorrelationEstimator, m repository.Metrics, l *logger.Logger) *usecase.DashboardUseCase {
	return usecase.NewDashboardUseCase(src,
		usecase.WithEstimators(est, usecase.NewSyntheticEstimator(cfg.Correlation.Seed)),
		usecase.WithDashboardMetrics(m),
		usecase.WithDashboardLogger(l),
		usecase.WithStaleAge(cfg.Cache.StaleAge),
		usecase.WithTimeout(cfg.Refresh.Timeout),
	)
}

func ProvideHub(cfg *config.Config, l *logger.Logger) *realtime.Hub {
	opts := []realtime.Option{
		realtime.WithLogger(l),
		realtime.WithBufferSize(cfg.Server.WSBuffer),
	}
	if len(cfg.Server.WSOrigins) > 0 {
		opts = append(opts, realtime.WithCheckOrigin(realtime.AllowOrigins(cfg.Server.WSOrigins)))
	}
	return realtime.NewHub(opts...)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Refresh.RateBurst, cfg.Refresh.RatePerS)
}

func ProvideDashboardHandler(l *logger.Logger, uc *usecase.DashboardUseCase, hub *realtime.Hub, rl *ratelimit.Limiter) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(l, uc, hub, rl)
}

// ProvideSnapshotPublisher publishes snapshot events to Kafka when enabled.
func ProvideSnapshotPublisher(cfg *config.Config, l *logger.Logger) (repository.SnapshotPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopSnapshotPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.SnapshotTopic)
	cleanup := func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", logger.Error(err))
		}
	}
	return pub, cleanup, nil
}

func ProvideRefresher(cfg *config.Config, uc *usecase.DashboardUseCase, hub *realtime.Hub, pub repository.SnapshotPublisher, l *logger.Logger) *usecase.Refresher {
	return usecase.NewRefresher(uc, hub, pub, cfg.Refresh.Interval, l)
}

// ProvideKafkaConsumer creates the invalidation consumer; nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, src *internalrepo.CachedSource, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerHandleTimeout(cfg.Kafka.Consumer.HandleTimeout),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewCacheInvalidationHandler(cfg.Kafka.InvalidationTopic, src, l))
	return consumer, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	h *api.DashboardEchoHandler,
	uc *usecase.DashboardUseCase,
	refresher *usecase.Refresher,
	hub *realtime.Hub,
	consumer *pkgkafka.Consumer,
) *server.App {
	return server.New(cfg, l, h, uc, refresher, hub, consumer)
}
