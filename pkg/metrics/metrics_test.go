package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/x", 200, 0.1)
		m.ObserveDBQuery("query", nil, 0.01)
		m.SetDBPoolStats("postgres", 1, 1, 0, 0)
		m.IncBookingOperation("request", "ok")
	})
}

func TestMetrics_BookingOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg, "test")

	m.IncBookingOperation("request", "ok")
	m.IncBookingOperation("request", "ok")
	m.IncBookingOperation("request", "conflict")
	m.ObserveDBQuery("exec", errors.New("boom"), 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingOutcomes.WithLabelValues("request", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingOutcomes.WithLabelValues("request", "conflict")))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusLabel(201))
	assert.Equal(t, "3xx", statusLabel(304))
	assert.Equal(t, "4xx", statusLabel(409))
	assert.Equal(t, "5xx", statusLabel(503))
}
