// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ResultSuccess = "success"

type Metrics struct {
	registry *prometheus.Registry

	GenerationTotal     *prometheus.CounterVec
	GenerationDuration  prometheus.Histogram
	ArchiveFailures     prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GenerationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytblog_generation_total",
				Help: "Article generation requests by outcome",
			},
			[]string{"result"},
		),
		GenerationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ytblog_generation_duration_seconds",
				Help:    "Time spent in the article generation pipeline",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		ArchiveFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ytblog_archive_failures_total",
				Help: "Articles that could not be archived to object storage",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordGeneration records one pass through the generation pipeline.
// result is ResultSuccess or the failure kind.
func (m *Metrics) RecordGeneration(result string, duration time.Duration) {
	m.GenerationTotal.WithLabelValues(result).Inc()
	m.GenerationDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordArchiveFailure() {
	m.ArchiveFailures.Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
