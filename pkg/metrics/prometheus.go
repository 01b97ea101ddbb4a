package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchTotal     *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	cacheTotal     *prometheus.CounterVec
	staleTotal     *prometheus.CounterVec
	refreshLatency prometheus.Histogram
	refreshWarns   prometheus.Counter
	portfolioValue *prometheus.GaugeVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "symbiotic_source_fetch_total",
				Help: "Data source reads by table and result",
			},
			[]string{"source", "table", "result"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "symbiotic_source_fetch_seconds",
				Help:    "Data source read latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source", "table"},
		),
		cacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "symbiotic_cache_lookups_total",
				Help: "Collection cache lookups by result",
			},
			[]string{"table", "result"},
		),
		staleTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "symbiotic_stale_collections_total",
				Help: "Snapshots that reused a previous collection after a failed read",
			},
			[]string{"table"},
		),
		refreshLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "symbiotic_refresh_seconds",
				Help:    "Duration of a full dashboard refresh",
				Buckets: prometheus.DefBuckets,
			},
		),
		refreshWarns: f.NewCounter(
			prometheus.CounterOpts{
				Name: "symbiotic_refresh_warnings_total",
				Help: "Warnings attached to dashboard snapshots",
			},
		),
		portfolioValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "symbiotic_portfolio_value",
				Help: "Last computed portfolio value per user",
			},
			[]string{"user"},
		),
	}
}

func (r *Recorder) RecordFetch(source, table string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.fetchTotal.WithLabelValues(source, table, result).Inc()
	r.fetchLatency.WithLabelValues(source, table).Observe(seconds)
}

func (r *Recorder) RecordCacheHit(table string) {
	r.cacheTotal.WithLabelValues(table, "hit").Inc()
}

func (r *Recorder) RecordCacheMiss(table string) {
	r.cacheTotal.WithLabelValues(table, "miss").Inc()
}

func (r *Recorder) RecordStale(table string) {
	r.staleTotal.WithLabelValues(table).Inc()
}

func (r *Recorder) RecordRefresh(seconds float64, warnings int) {
	r.refreshLatency.Observe(seconds)
	r.refreshWarns.Add(float64(warnings))
}

// RecordPortfolioValue skips anonymous snapshots to keep cardinality bounded by real users.
func (r *Recorder) RecordPortfolioValue(userID string, value float64) {
	if userID == "" {
		return
	}
	r.portfolioValue.WithLabelValues(userID).Set(value)
}
