package api

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	domsvc "Symbiotic/internal/domain/service"
	"Symbiotic/internal/handler/realtime"
	"Symbiotic/internal/service/metrics"
	"Symbiotic/internal/service/ratelimit"
	"Symbiotic/internal/usecase"
	xhttp "Symbiotic/pkg/http"
	"Symbiotic/pkg/http/middleware"
	xlogger "Symbiotic/pkg/logger"
)

// SectionResponse wraps one dashboard section with the warnings raised while reading it.
type SectionResponse[T any] struct {
	Items    T                `json:"items"`
	Warnings []models.Warning `json:"warnings,omitempty"`
}

// DashboardEchoHandler serves the dashboard over Echo.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.DashboardUseCase
	hub    *realtime.Hub
	rl     *ratelimit.Limiter
}

// NewDashboardEchoHandler builds the handler; hub and rl may be nil.
func NewDashboardEchoHandler(logger *xlogger.Logger, uc *usecase.DashboardUseCase, hub *realtime.Hub, rl *ratelimit.Limiter) *DashboardEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	metrics.Register()
	return &DashboardEchoHandler{logger: logger, uc: uc, hub: hub, rl: rl}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/dashboard", h.Dashboard)
	g.GET("/market", h.Market)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/signals", h.Signals)
	g.GET("/predictions", h.Predictions)
	g.GET("/health", h.Health)
	g.GET("/correlation", h.Correlation)
	g.POST("/refresh", h.Refresh)
	if h.hub != nil {
		g.GET("/ws", h.WS)
	}
}

func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	defer h.observe("dashboard", time.Now())
	req := &models.DashboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.uc.Refresh(c.Request().Context(), usecase.DashboardParams{
		UserID:          req.UserID,
		SignalLimit:     req.SignalLimit,
		PredictionLimit: req.PredictionLimit,
		HealthLimit:     req.HealthLimit,
		Filter:          signalFilter(req.Kind, req.AssetType, req.MinScore),
		WithCorrelation: req.WithCorrelation,
	})
	if err != nil {
		return h.fail(c, "dashboard", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, snap)
}

func (h *DashboardEchoHandler) Market(c echo.Context) error {
	defer h.observe("market", time.Now())
	view, warns := h.uc.Market(c.Request().Context())
	return xhttp.SuccessResponse(c, SectionResponse[models.MarketView]{Items: view, Warnings: warns})
}

func (h *DashboardEchoHandler) Portfolio(c echo.Context) error {
	defer h.observe("portfolio", time.Now())
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	view, warns := h.uc.Portfolio(c.Request().Context(), req.UserID)
	return xhttp.SuccessResponse(c, SectionResponse[models.PortfolioView]{Items: view, Warnings: warns})
}

func (h *DashboardEchoHandler) Signals(c echo.Context) error {
	defer h.observe("signals", time.Now())
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	items, warns := h.uc.Signals(c.Request().Context(), req.Limit, signalFilter(req.Kind, req.AssetType, req.MinScore))
	return xhttp.SuccessResponse(c, SectionResponse[[]models.Signal]{Items: items, Warnings: warns})
}

func (h *DashboardEchoHandler) Predictions(c echo.Context) error {
	defer h.observe("predictions", time.Now())
	req := &models.LimitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	items, warns := h.uc.Predictions(c.Request().Context(), req.Limit)
	return xhttp.SuccessResponse(c, SectionResponse[[]models.PredictionMarket]{Items: items, Warnings: warns})
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	defer h.observe("health", time.Now())
	req := &models.LimitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	view, warns := h.uc.Health(c.Request().Context(), req.Limit)
	return xhttp.SuccessResponse(c, SectionResponse[models.HealthView]{Items: view, Warnings: warns})
}

func (h *DashboardEchoHandler) Correlation(c echo.Context) error {
	defer h.observe("correlation", time.Now())
	req := &models.CorrelationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	m, warns := h.uc.Correlation(c.Request().Context(), domsvc.CorrelationWindow{
		N:         req.N,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
	})
	return xhttp.SuccessResponse(c, SectionResponse[models.CorrelationMatrix]{Items: m, Warnings: warns})
}

// Refresh drops cached collections (one table, or all) and rebuilds the caller's snapshot.
func (h *DashboardEchoHandler) Refresh(c echo.Context) error {
	defer h.observe("refresh", time.Now())
	if h.rl != nil && !h.rl.Allow(c.RealIP()) {
		middleware.RequestLogger(c, h.logger).Warn("refresh rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.ErrorResponse(c, xhttp.TooManyRequestsError("too many refresh requests", h.rl.RetryAfter(c.RealIP())))
	}
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	if err := h.uc.Invalidate(ctx, req.Table); err != nil {
		// a stale cache is not worth failing the refresh over
		middleware.RequestLogger(c, h.logger).Warn("refresh invalidate failed", xlogger.String("table", req.Table), xlogger.Error(err))
	}
	snap, err := h.uc.Refresh(ctx, usecase.DefaultParams(req.UserID))
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	if h.hub != nil {
		h.hub.Broadcast(req.UserID, snap)
	}
	return xhttp.SuccessResponse(c, snap)
}

// WS subscribes the caller to periodic snapshots, starting with a fresh one.
func (h *DashboardEchoHandler) WS(c echo.Context) error {
	userID := strings.TrimSpace(c.QueryParam("user_id"))
	first, err := h.uc.Refresh(c.Request().Context(), usecase.DefaultParams(userID))
	if err != nil {
		return h.fail(c, "ws", err)
	}
	if err := h.hub.Serve(c.Response(), c.Request(), userID, first); err != nil {
		// the upgrader has already replied
		h.logger.Warn("ws upgrade failed", xlogger.Error(err))
	}
	return nil
}

func (h *DashboardEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	metrics.APIErrors.WithLabelValues(endpoint).Inc()
	middleware.RequestLogger(c, h.logger).Error("dashboard usecase error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	return xhttp.ErrorResponse(c, err)
}

func (h *DashboardEchoHandler) observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// signalFilter converts validated query values; anything unparsable means no filter.
func signalFilter(kind, assetType string, minScore int) models.SignalFilter {
	f := models.SignalFilter{MinScore: minScore}
	if k, ok := models.ParseSignalKind(kind); ok {
		f.Kind = k
	}
	if t, ok := models.ParseAssetType(assetType); ok {
		f.AssetType = t
	}
	return f
}
