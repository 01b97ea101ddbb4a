package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordFetch("source", "market_data", 0.1, nil)
	r.RecordFetch("source", "market_data", 0.2, errors.New("x"))
	r.RecordCacheHit("holdings")
	r.RecordCacheHit("holdings")
	r.RecordCacheMiss("holdings")
	r.RecordStale("system_health")
	r.RecordRefresh(0.5, 2)
	r.RecordPortfolioValue("u1", 1000)
	r.RecordPortfolioValue("", 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchTotal.WithLabelValues("source", "market_data", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheTotal.WithLabelValues("holdings", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.staleTotal.WithLabelValues("system_health")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.refreshWarns))
	assert.Equal(t, 1000.0, testutil.ToFloat64(r.portfolioValue.WithLabelValues("u1")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.portfolioValue))
}
