// Package metrics exposes load and request counters for Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"painelpib/internal/loader"
)

// Metrics holds the collectors of one process. It implements query.Observer.
type Metrics struct {
	Registry *prometheus.Registry

	loadTotal    *prometheus.CounterVec
	loadDuration prometheus.Histogram
	rowsKept     prometheus.Gauge
	rowsDropped  *prometheus.GaugeVec
	httpTotal    *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		loadTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "painel_load_total",
			Help: "Dataset loads by outcome",
		}, []string{"outcome"}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "painel_load_duration_seconds",
			Help:    "Time to fetch and build the dataset",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		rowsKept: f.NewGauge(prometheus.GaugeOpts{
			Name: "painel_rows_kept",
			Help: "Table rows accepted by the last load",
		}),
		rowsDropped: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "painel_rows_dropped",
			Help: "Table rows dropped by the last load, by reason",
		}, []string{"reason"}),
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "painel_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "painel_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"route"}),
	}
}

// LoadFinished records one load attempt. Row gauges reflect the last attempt that got as far as the table.
func (m *Metrics) LoadFinished(err error, elapsed time.Duration, rows loader.RowStats) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.loadTotal.WithLabelValues(outcome).Inc()
	m.loadDuration.Observe(elapsed.Seconds())
	if rows.Dropped == nil {
		return
	}
	m.rowsKept.Set(float64(rows.Kept))
	m.rowsDropped.Reset()
	for reason, n := range rows.Dropped {
		m.rowsDropped.WithLabelValues(string(reason)).Set(float64(n))
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	m.httpTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
