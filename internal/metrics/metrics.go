// Package metrics holds the Prometheus collectors of the booking backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookmd"

type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	SaveChanges      *prometheus.CounterVec
	EventsDispatched *prometheus.CounterVec
	OutboxRelayed    prometheus.Counter
}

// New registers every collector on reg. Pass a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"route"}),
		SaveChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_changes_total",
			Help:      "Unit of work flushes by outcome",
		}, []string{"status"}),
		EventsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dispatched_total",
			Help:      "Domain events handed to a sink by outcome",
		}, []string{"sink", "status"}),
		OutboxRelayed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_relayed_total",
			Help:      "Outbox events delivered by the relay",
		}),
	}
}

// The Observe helpers are no-ops on a nil receiver.

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObserveSave(err error) {
	if m == nil {
		return
	}
	m.SaveChanges.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveDispatch(sink string, n int, err error) {
	if m == nil {
		return
	}
	m.EventsDispatched.WithLabelValues(sink, outcome(err)).Add(float64(n))
}

func (m *Metrics) ObserveRelayed(n int) {
	if m == nil {
		return
	}
	m.OutboxRelayed.Add(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
