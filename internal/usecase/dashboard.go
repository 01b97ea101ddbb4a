package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	domsvc "Symbiotic/internal/domain/service"
	icache "Symbiotic/internal/service/cache"
	"Symbiotic/internal/services/analytics"
	"Symbiotic/internal/services/charts"
	"Symbiotic/pkg/logger"
)

const (
	DefaultSignalLimit     = 20
	DefaultPredictionLimit = 10
	DefaultHealthLimit     = 10

	defaultStaleAge = 15 * time.Minute
)

// DashboardParams selects what one refresh reads.
type DashboardParams struct {
	UserID          string
	SignalLimit     int
	PredictionLimit int
	HealthLimit     int
	Filter          models.SignalFilter
	WithCorrelation bool
	Window          domsvc.CorrelationWindow
}

// DefaultParams is what the periodic refresher uses.
func DefaultParams(userID string) DashboardParams {
	return DashboardParams{
		UserID:          userID,
		SignalLimit:     DefaultSignalLimit,
		PredictionLimit: DefaultPredictionLimit,
		HealthLimit:     DefaultHealthLimit,
	}
}

func (p *DashboardParams) normalize() {
	if p.SignalLimit <= 0 {
		p.SignalLimit = DefaultSignalLimit
	}
	if p.PredictionLimit <= 0 {
		p.PredictionLimit = DefaultPredictionLimit
	}
	if p.HealthLimit <= 0 {
		p.HealthLimit = DefaultHealthLimit
	}
}

// DashboardOption configures DashboardUseCase.
type DashboardOption func(*DashboardUseCase)

// WithEstimators sets the correlation estimator and the one used when it fails.
// A nil primary means the fallback is always used.
func WithEstimators(primary, fallback domsvc.CorrelationEstimator) DashboardOption {
	return func(uc *DashboardUseCase) {
		uc.primary = primary
		if fallback != nil {
			uc.fallback = fallback
		}
	}
}

func WithDashboardMetrics(m domrepo.Metrics) DashboardOption {
	return func(uc *DashboardUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithDashboardLogger(l *logger.Logger) DashboardOption {
	return func(uc *DashboardUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// WithStaleAge bounds how old a previous collection may be and still be served.
func WithStaleAge(d time.Duration) DashboardOption {
	return func(uc *DashboardUseCase) { uc.lastGood = icache.NewLastGood(d) }
}

// WithTimeout bounds one refresh.
func WithTimeout(d time.Duration) DashboardOption {
	return func(uc *DashboardUseCase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

// DashboardUseCase reads every collection and derives the dashboard from it.
// A failed read never fails the refresh: the last good collection (or an empty one)
// is used instead and a Warning says so.
type DashboardUseCase struct {
	source      domrepo.DataSource
	invalidator domrepo.Invalidator
	primary     domsvc.CorrelationEstimator
	fallback    domsvc.CorrelationEstimator
	lastGood    *icache.LastGood
	metrics     domrepo.Metrics
	log         *logger.Logger
	timeout     time.Duration
	now         func() time.Time
}

func NewDashboardUseCase(source domrepo.DataSource, opts ...DashboardOption) *DashboardUseCase {
	uc := &DashboardUseCase{
		source:   source,
		fallback: NewSyntheticEstimator(0),
		lastGood: icache.NewLastGood(defaultStaleAge),
		metrics:  domrepo.NopMetrics{},
		log:      logger.Nop(),
		timeout:  15 * time.Second,
		now:      time.Now,
	}
	if inv, ok := source.(domrepo.Invalidator); ok {
		uc.invalidator = inv
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Refresh performs one full roundtrip per record type and builds a snapshot.
func (uc *DashboardUseCase) Refresh(ctx context.Context, p DashboardParams) (*models.DashboardSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.normalize()
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	start := time.Now()
	var warns []models.Warning

	quotes := uc.quotes(ctx, &warns)
	holdings := uc.holdings(ctx, p.UserID, &warns)
	signals := uc.signals(ctx, p.SignalLimit, p.Filter, &warns)
	predictions := uc.predictions(ctx, p.PredictionLimit, &warns)
	health := uc.health(ctx, p.HealthLimit, &warns)

	snap := &models.DashboardSnapshot{
		UserID:      p.UserID,
		GeneratedAt: uc.now().UTC(),
		Market:      buildMarket(quotes),
		Portfolio:   buildPortfolio(holdings, quotes),
		Signals:     signals,
		Predictions: predictions,
		Health:      buildHealth(health),
	}
	snap.Charts = models.ChartSet{
		PriceChanges: snap.Market.Bars,
		Allocation:   snap.Portfolio.Allocation,
		Risk:         snap.Portfolio.Risk,
	}
	if p.WithCorrelation {
		m := uc.correlate(ctx, assetsOf(quotes), p.Window, &warns)
		snap.Charts.Correlation = &m
	}
	snap.Warnings = warns

	uc.metrics.RecordRefresh(time.Since(start).Seconds(), len(warns))
	uc.metrics.RecordPortfolioValue(p.UserID, snap.Portfolio.Summary.TotalValue.InexactFloat64())
	if len(warns) > 0 {
		uc.log.Warn("dashboard refreshed with warnings",
			logger.String("user_id", p.UserID),
			logger.Int("warnings", len(warns)),
		)
	}
	return snap, nil
}

func (uc *DashboardUseCase) Market(ctx context.Context) (models.MarketView, []models.Warning) {
	var warns []models.Warning
	return buildMarket(uc.quotes(ctx, &warns)), warns
}

// Portfolio needs quotes too, to resolve current prices.
func (uc *DashboardUseCase) Portfolio(ctx context.Context, userID string) (models.PortfolioView, []models.Warning) {
	var warns []models.Warning
	quotes := uc.quotes(ctx, &warns)
	holdings := uc.holdings(ctx, userID, &warns)
	return buildPortfolio(holdings, quotes), warns
}

func (uc *DashboardUseCase) Signals(ctx context.Context, limit int, f models.SignalFilter) ([]models.Signal, []models.Warning) {
	if limit <= 0 {
		limit = DefaultSignalLimit
	}
	var warns []models.Warning
	return uc.signals(ctx, limit, f, &warns), warns
}

func (uc *DashboardUseCase) Predictions(ctx context.Context, limit int) ([]models.PredictionMarket, []models.Warning) {
	if limit <= 0 {
		limit = DefaultPredictionLimit
	}
	var warns []models.Warning
	return uc.predictions(ctx, limit, &warns), warns
}

func (uc *DashboardUseCase) Health(ctx context.Context, limit int) (models.HealthView, []models.Warning) {
	if limit <= 0 {
		limit = DefaultHealthLimit
	}
	var warns []models.Warning
	return buildHealth(uc.health(ctx, limit, &warns)), warns
}

// Correlation estimates a matrix across all quoted assets.
func (uc *DashboardUseCase) Correlation(ctx context.Context, w domsvc.CorrelationWindow) (models.CorrelationMatrix, []models.Warning) {
	var warns []models.Warning
	quotes := uc.quotes(ctx, &warns)
	return uc.correlate(ctx, assetsOf(quotes), w, &warns), warns
}

// Invalidate drops cached collections of table ("" for all) when the source caches.
func (uc *DashboardUseCase) Invalidate(ctx context.Context, table string) error {
	if uc.invalidator == nil {
		return nil
	}
	if err := uc.invalidator.Invalidate(ctx, table); err != nil {
		return fmt.Errorf("invalidate %s: %w", table, err)
	}
	return nil
}

// Ping checks the data source.
func (uc *DashboardUseCase) Ping(ctx context.Context) error {
	return uc.source.Ping(ctx)
}

func (uc *DashboardUseCase) quotes(ctx context.Context, warns *[]models.Warning) []models.PriceQuote {
	return collect(ctx, uc, domrepo.TableMarketData, "quotes", warns, uc.source.ListQuotes)
}

func (uc *DashboardUseCase) holdings(ctx context.Context, userID string, warns *[]models.Warning) []models.Holding {
	if userID == "" {
		return []models.Holding{}
	}
	return collect(ctx, uc, domrepo.TableHoldings, "holdings:"+userID, warns,
		func(ctx context.Context) ([]models.Holding, error) { return uc.source.ListHoldings(ctx, userID) })
}

func (uc *DashboardUseCase) signals(ctx context.Context, limit int, f models.SignalFilter, warns *[]models.Warning) []models.Signal {
	all := collect(ctx, uc, domrepo.TableSignals, fmt.Sprintf("signals:%d", limit), warns,
		func(ctx context.Context) ([]models.Signal, error) { return uc.source.ListSignals(ctx, limit) })
	return analytics.FilterSignals(analytics.RankSignals(all), f)
}

func (uc *DashboardUseCase) predictions(ctx context.Context, limit int, warns *[]models.Warning) []models.PredictionMarket {
	all := collect(ctx, uc, domrepo.TablePredictions, fmt.Sprintf("predictions:%d", limit), warns,
		func(ctx context.Context) ([]models.PredictionMarket, error) {
			return uc.source.ListPredictionMarkets(ctx, limit)
		})
	return analytics.RankPredictions(all)
}

func (uc *DashboardUseCase) health(ctx context.Context, limit int, warns *[]models.Warning) []models.HealthComponent {
	all := collect(ctx, uc, domrepo.TableHealth, fmt.Sprintf("health:%d", limit), warns,
		func(ctx context.Context) ([]models.HealthComponent, error) { return uc.source.ListHealth(ctx, limit) })
	return analytics.RankHealth(all)
}

func (uc *DashboardUseCase) correlate(ctx context.Context, assets []models.Asset, w domsvc.CorrelationWindow, warns *[]models.Warning) models.CorrelationMatrix {
	if uc.primary != nil {
		m, err := uc.primary.Estimate(ctx, assets, w)
		if err == nil {
			return m
		}
		uc.log.Warn("historical correlation failed", logger.Error(err))
		*warns = append(*warns, models.Warning{
			Source:  "correlation",
			Message: fmt.Sprintf("historical correlation unavailable: %v", err),
		})
	}
	m, err := uc.fallback.Estimate(ctx, assets, w)
	if err != nil {
		uc.log.Warn("fallback correlation failed", logger.Error(err))
		*warns = append(*warns, models.Warning{Source: "correlation", Message: err.Error()})
		// the prior-based matrix cannot fail, so the chart keeps its labels
		m, _ = NewSyntheticEstimator(0).Estimate(ctx, assets, w)
	}
	if m.Synthetic {
		*warns = append(*warns, models.Warning{
			Source:  "correlation",
			Message: "correlation matrix is synthetic and not derived from price history",
		})
	}
	return m
}

// collect runs one read. On failure it serves the last good result for key, or an empty
// collection, and records a warning either way.
func collect[T any](ctx context.Context, uc *DashboardUseCase, table, key string, warns *[]models.Warning, read func(context.Context) ([]T, error)) []T {
	rows, err := read(ctx)
	if err == nil {
		if rows == nil {
			rows = []T{}
		}
		uc.lastGood.Put(key, rows)
		return rows
	}

	uc.log.Warn("data source read failed",
		logger.String("table", table),
		logger.String("key", key),
		logger.Error(err),
	)
	if prev, at, ok := icache.Lookup[[]T](uc.lastGood, key); ok {
		uc.metrics.RecordStale(table)
		*warns = append(*warns, models.Warning{
			Source:  table,
			Message: fmt.Sprintf("showing data from %s: %v", at.UTC().Format(time.RFC3339), err),
			Stale:   true,
		})
		return prev
	}
	*warns = append(*warns, models.Warning{Source: table, Message: err.Error()})
	return []T{}
}

func buildMarket(quotes []models.PriceQuote) models.MarketView {
	return models.MarketView{
		Quotes:     quotes,
		Summary:    analytics.MarketSummary(quotes),
		Volatility: analytics.VolatilityProxy(quotes),
		Bars:       charts.PriceChangeBars(quotes),
	}
}

func buildPortfolio(holdings []models.Holding, quotes []models.PriceQuote) models.PortfolioView {
	resolved := analytics.ResolveCurrentPrices(holdings, quotes)
	risk := analytics.ConcentrationRisk(resolved)
	return models.PortfolioView{
		Holdings:      analytics.HoldingBreakdown(resolved),
		Summary:       analytics.PortfolioSummary(resolved),
		Concentration: risk,
		Allocation:    charts.AllocationPie(resolved),
		Risk:          charts.ConcentrationGauge(risk.Score),
	}
}

func buildHealth(components []models.HealthComponent) models.HealthView {
	return models.HealthView{
		Components: components,
		Summary:    analytics.HealthSummary(components),
	}
}

// assetsOf lists quoted assets once per symbol, in quote order.
func assetsOf(quotes []models.PriceQuote) []models.Asset {
	seen := make(map[string]struct{}, len(quotes))
	out := make([]models.Asset, 0, len(quotes))
	for _, q := range quotes {
		key := strings.ToUpper(q.Asset.Symbol)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q.Asset)
	}
	return out
}
