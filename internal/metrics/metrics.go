package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/quoting/internal/logger"
)

const namespace = "quoting"

// Metrics holds the quoting collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	QuotesGenerated *prometheus.CounterVec
	Declines        *prometheus.CounterVec
	RecordFailures  *prometheus.CounterVec
	RatingDuration  *prometheus.HistogramVec
}

// New creates and registers the collectors, including counters mirrored
// from the logger.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QuotesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_generated_total",
			Help:      "Quotes returned to applicants, by insurance type.",
		}, []string{"insurance_type"}),
		Declines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "underwriting_declines_total",
			Help:      "Applications automatically declined, by insurance type.",
		}, []string{"insurance_type"}),
		RecordFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_failures_total",
			Help:      "Quote recordings that failed, by recorder.",
		}, []string{"recorder"}),
		RatingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rating_duration_seconds",
			Help:      "Time spent loading the catalog and pricing a request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"insurance_type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.QuotesGenerated,
		m.Declines,
		m.RecordFailures,
		m.RatingDuration,
		counterFunc("log_errors_total", "Error log events, before sampling.", &logger.TotalErrors),
		counterFunc("log_warnings_total", "Warning log events, before sampling.", &logger.TotalWarnings),
		counterFunc("http_5xx_total", "Server error responses.", &logger.Total5xxErrors),
		counterFunc("http_4xx_total", "Client error responses.", &logger.Total4xxErrors),
		counterFunc("catalog_failures_total", "Catalog reads that failed.", &logger.CatalogFailures),
	)
	return m
}

func counterFunc(name, help string, v *atomic.Int64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(v.Load()) })
}

// Registry exposes the registry for tests and additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
