package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("GET", "/products", 200, 25*time.Millisecond)
	c.RecordRequest("GET", "/products", 200, 30*time.Millisecond)
	c.RecordRateLimited()
	c.RecordError("GET", "/products/{id}", "request_timeout")
	c.RecordCacheHit("List")
	c.RecordCacheMiss("List")
	c.RecordCacheMiss("List")
	c.RecordInvalidations("Update", 3)
	c.RecordInvalidations("Update", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/products", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rateLimitRejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues("GET", "/products/{id}", "request_timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("List")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("List")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.invalidations.WithLabelValues("Update")))

	count, err := testutil.GatherAndCount(reg, "storefront_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordRequest("GET", "/products", 200, time.Millisecond)
		c.RecordRateLimited()
		c.RecordError("GET", "/products", "api_error")
		c.RecordCacheHit("List")
		c.RecordCacheMiss("List")
		c.RecordInvalidations("Delete", 2)
	})
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
