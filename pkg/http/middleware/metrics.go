package middleware

import (
	"strconv"
	"sync"
	"time"

	"Symbiotic/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpCollectors struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

var collectors = sync.OnceValue(func() *httpCollectors {
	return &httpCollectors{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "symbiotic_http_requests_total",
			Help: "HTTP requests by route template, method and status",
		}, []string{"route", "method", "status"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "symbiotic_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"route", "method", "class"}),
		size: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "symbiotic_http_response_size_bytes",
			Help:    "HTTP response body size",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"route", "class"}),
		inFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "symbiotic_http_in_flight_requests",
			Help: "Requests currently being served",
		}),
	}
})

// Metrics records request metrics under the registered route template so query
// strings and path params never become labels. Requests slower than slow are
// logged at warn, 5xx at error.
func Metrics(l *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	m := collectors()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.inFlight.Inc()
			defer m.inFlight.Dec()
			start := time.Now()

			if err := next(c); err != nil {
				// commit the response here so the status below is final
				c.Error(err)
			}

			took := time.Since(start)
			route, method := routeLabel(c), c.Request().Method
			code := c.Response().Status
			class := statusClass(code)
			m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
			m.duration.WithLabelValues(route, method, class).Observe(took.Seconds())
			m.size.WithLabelValues(route, class).Observe(float64(c.Response().Size))

			switch {
			case code >= 500:
				RequestLogger(c, l).Error("http request failed", requestFields(route, method, code, took)...)
			case slow > 0 && took >= slow:
				RequestLogger(c, l).Warn("http request slow", requestFields(route, method, code, took)...)
			}
			return nil
		}
	}
}

func requestFields(route, method string, code int, took time.Duration) []logger.Field {
	return []logger.Field{
		logger.String("route", route),
		logger.String("method", method),
		logger.Int("status", code),
		logger.Duration("duration_ms", took),
	}
}

func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}

// statusClass buckets a status code as "2xx" and so on; anything out of range counts as 5xx.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
