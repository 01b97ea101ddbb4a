package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Symbiotic/pkg/logger"
)

func serve(e *echo.Echo, method, target string, hdr http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRecover_LogsPanicAndReturns500(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Recover(logger.NewWriter(&buf)))
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
	assert.Contains(t, buf.String(), "http handler panic")
	assert.Contains(t, buf.String(), "kaboom")
}

func TestRecover_UsesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWriter(&buf)
	e := echo.New()
	e.Use(RequestLogging(l), Recover(l))
	e.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := serve(e, http.MethodGet, "/boom", http.Header{echo.HeaderXRequestID: []string{"req-42"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestRequestLogger_Fallback(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.NotNil(t, RequestLogger(c, nil))
	fb := logger.Nop()
	assert.Same(t, fb, RequestLogger(c, fb))
}

func TestRequestLogging_RequestID(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogging(logger.NewWriter(&buf)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := serve(e, http.MethodGet, "/ok", nil)
	generated := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, generated, 36)
	assert.Contains(t, buf.String(), generated)

	rec = serve(e, http.MethodGet, "/ok", http.Header{echo.HeaderXRequestID: []string{"req-1"}})
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))
}

func TestMetrics_LabelsByRouteTemplate(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Metrics(logger.NewWriter(&buf), 0))
	e.GET("/api/items/:id", func(c echo.Context) error { return c.String(http.StatusOK, c.Param("id")) })
	e.GET("/api/fail", func(echo.Context) error { return errors.New("db down") })

	before := testutil.ToFloat64(collectors().requests.WithLabelValues("/api/items/:id", http.MethodGet, "200"))
	serve(e, http.MethodGet, "/api/items/1", nil)
	serve(e, http.MethodGet, "/api/items/2", nil)
	assert.Equal(t, before+2, testutil.ToFloat64(collectors().requests.WithLabelValues("/api/items/:id", http.MethodGet, "200")))

	rec := serve(e, http.MethodGet, "/api/fail", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors().requests.WithLabelValues("/api/fail", http.MethodGet, "500")))
	assert.Contains(t, buf.String(), "http request failed")
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(429))
	assert.Equal(t, "5xx", statusClass(0))
	assert.Equal(t, "3xx", statusClass(304))
}

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins:  []string{"https://dash.example.com"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))
	e.GET("/api/market", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/api/market", http.Header{"Origin": []string{"https://dash.example.com"}})
	assert.Equal(t, "https://dash.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, echo.HeaderXRequestID, rec.Header().Get(echo.HeaderAccessControlExposeHeaders))

	rec = serve(e, http.MethodOptions, "/api/market", http.Header{"Origin": []string{"https://dash.example.com"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get(echo.HeaderAccessControlAllowMethods))

	rec = serve(e, http.MethodGet, "/api/market", http.Header{"Origin": []string{"https://evil.example.com"}})
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, http.StatusOK, rec.Code)
}
