package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Symbiotic/internal/domain/models"
	domrepo "Symbiotic/internal/domain/repository"
	"Symbiotic/internal/service/ratelimit"
	"Symbiotic/internal/usecase"
	xhttp "Symbiotic/pkg/http"
)

type stubSource struct {
	healthErr   error
	invalidated []string
}

func (s *stubSource) ListQuotes(context.Context) ([]models.PriceQuote, error) {
	return []models.PriceQuote{
		{Asset: models.Asset{Symbol: "BTC", Name: "Bitcoin", Type: models.AssetCrypto}, Price: decimal.NewFromInt(50000), ChangePct: 5},
		{Asset: models.Asset{Symbol: "AAPL", Name: "Apple", Type: models.AssetStock}, Price: decimal.NewFromInt(190), ChangePct: -3},
	}, nil
}

func (s *stubSource) ListHoldings(_ context.Context, userID string) ([]models.Holding, error) {
	return []models.Holding{{
		UserID:       userID,
		Ticker:       "AAPL",
		Asset:        models.Asset{Symbol: "AAPL", Name: "Apple", Type: models.AssetStock},
		Quantity:     decimal.NewFromInt(2),
		AveragePrice: decimal.NewFromInt(100),
		CurrentValue: decimal.NewFromInt(380),
	}}, nil
}

func (s *stubSource) ListSignals(context.Context, int) ([]models.Signal, error) {
	return []models.Signal{
		{ID: "1", Kind: models.SignalBuy, Score: 60, Asset: models.Asset{Symbol: "BTC", Type: models.AssetCrypto}},
		{ID: "2", Kind: models.SignalSell, Score: 80, Asset: models.Asset{Symbol: "AAPL", Type: models.AssetStock}},
	}, nil
}

func (s *stubSource) ListPredictionMarkets(context.Context, int) ([]models.PredictionMarket, error) {
	return []models.PredictionMarket{}, nil
}

func (s *stubSource) ListHealth(context.Context, int) ([]models.HealthComponent, error) {
	if s.healthErr != nil {
		return nil, s.healthErr
	}
	return []models.HealthComponent{{Component: "db", Status: models.StatusHealthy}}, nil
}

func (s *stubSource) Ping(context.Context) error { return nil }

func (s *stubSource) Invalidate(_ context.Context, table string) error {
	s.invalidated = append(s.invalidated, table)
	return nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(src *stubSource, rl *ratelimit.Limiter) *echo.Echo {
	e := echo.New()
	h := NewDashboardEchoHandler(nil, usecase.NewDashboardUseCase(src), nil, rl)
	h.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) envelope {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestDashboard(t *testing.T) {
	e := newTestServer(&stubSource{}, nil)

	env := do(t, e, http.MethodGet, "/api/dashboard?user_id=u1&correlation=true", "")
	require.Equal(t, http.StatusOK, env.Status)

	var snap models.DashboardSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, "u1", snap.UserID)
	assert.Equal(t, 2, snap.Market.Summary.Total)
	assert.Equal(t, "380", snap.Portfolio.Summary.TotalValue.String())
	require.NotNil(t, snap.Charts.Correlation)
	assert.True(t, snap.Charts.Correlation.Synthetic)
	require.Len(t, snap.Warnings, 1)
	assert.Equal(t, "correlation", snap.Warnings[0].Source)
}

func TestDashboard_ValidationError(t *testing.T) {
	e := newTestServer(&stubSource{}, nil)

	env := do(t, e, http.MethodGet, "/api/dashboard?kind=MAYBE", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)

	var verrs []xhttp.ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &verrs))
	require.Len(t, verrs, 1)
	assert.Equal(t, "ERR_ONEOF", verrs[0].Code)
	assert.Equal(t, "kind", verrs[0].Field)
	assert.Equal(t, "MAYBE", verrs[0].Params["value"])
}

func TestSignals_FilterCaseInsensitive(t *testing.T) {
	e := newTestServer(&stubSource{}, nil)

	env := do(t, e, http.MethodGet, "/api/signals?asset_type=Crypto&kind=buy", "")
	var res SectionResponse[[]models.Signal]
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Items, 1)
	assert.Equal(t, "1", res.Items[0].ID)
}

func TestPortfolio_RequiresUser(t *testing.T) {
	e := newTestServer(&stubSource{}, nil)

	env := do(t, e, http.MethodGet, "/api/portfolio", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)

	env = do(t, e, http.MethodGet, "/api/portfolio?user_id=u1", "")
	var res SectionResponse[models.PortfolioView]
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.RiskHigh, res.Items.Concentration.Level)
	assert.True(t, res.Items.Holdings[0].PriceIsLive)
}

func TestHealth_DegradedSourceStillAnswers(t *testing.T) {
	e := newTestServer(&stubSource{healthErr: domrepo.Unavailable("system_health", errors.New("timeout"))}, nil)

	env := do(t, e, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, env.Status)
	var res SectionResponse[models.HealthView]
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 0, res.Items.Summary.Total)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "system_health", res.Warnings[0].Source)
}

func TestCorrelation_Validation(t *testing.T) {
	e := newTestServer(&stubSource{}, nil)

	env := do(t, e, http.MethodGet, "/api/correlation?tf=2h", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)

	env = do(t, e, http.MethodGet, "/api/correlation", "")
	var res SectionResponse[models.CorrelationMatrix]
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, []string{"BTC", "AAPL"}, res.Items.Labels)
}

func TestRefresh_InvalidatesAndRateLimits(t *testing.T) {
	src := &stubSource{}
	e := newTestServer(src, ratelimit.New(1, 0.2))

	env := do(t, e, http.MethodPost, "/api/refresh", `{"user_id":"u1","table":"market_data"}`)
	require.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, []string{"market_data"}, src.invalidated)

	env = do(t, e, http.MethodPost, "/api/refresh", `{"user_id":"u1"}`)
	assert.Equal(t, http.StatusTooManyRequests, env.Status)
	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_RATE_LIMITED", errs[0].Code)
	assert.InDelta(t, 5, errs[0].Params["retry_after_seconds"], 1)
}
