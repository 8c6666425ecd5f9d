package metrics

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP(http.MethodGet, "/doctors", http.StatusOK, 10*time.Millisecond)
	m.ObserveSave(nil)
	m.ObserveSave(errors.New("write failed"))
	m.ObserveDispatch("log", 3, nil)
	m.ObserveRelayed(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/doctors", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SaveChanges.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SaveChanges.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EventsDispatched.WithLabelValues("log", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OutboxRelayed))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, time.Second)
		m.ObserveSave(nil)
		m.ObserveDispatch("log", 1, nil)
		m.ObserveRelayed(1)
	})
}
