// Package prometheus records crawl, retrieval and cache metrics in a
// Prometheus registry.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.Metrics = (*Metrics)(nil)

const namespace = "sercha_site"

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	urls          *prometheus.CounterVec
	batches       prometheus.Counter
	batchDuration prometheus.Histogram
	batchSize     prometheus.Histogram
	retrievals    prometheus.Histogram
	sources       prometheus.Histogram
	cacheLookups  *prometheus.CounterVec
}

// New creates collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		urls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "urls_total",
			Help:      "Crawled URLs by outcome.",
		}, []string{"outcome"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "batches_total",
			Help:      "Completed worker batches.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "batch_duration_seconds",
			Help:      "Worker batch wall time.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "batch_urls",
			Help:      "URLs processed per batch.",
			Buckets:   prometheus.LinearBuckets(0, 5, 10),
		}),
		retrievals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		sources: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "sources",
			Help:      "Sources returned per retrieval.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Answer cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.urls, m.batches, m.batchDuration, m.batchSize,
		m.retrievals, m.sources, m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// URLProcessed counts one crawled URL.
func (m *Metrics) URLProcessed(outcome string) {
	m.urls.WithLabelValues(outcome).Inc()
}

// BatchCompleted records a finished worker batch.
func (m *Metrics) BatchCompleted(processed int, elapsed time.Duration) {
	m.batches.Inc()
	m.batchSize.Observe(float64(processed))
	m.batchDuration.Observe(elapsed.Seconds())
}

// RetrievalCompleted records one retrieval.
func (m *Metrics) RetrievalCompleted(sources int, elapsed time.Duration) {
	m.sources.Observe(float64(sources))
	m.retrievals.Observe(elapsed.Seconds())
}

// CacheLookup counts a cache lookup.
func (m *Metrics) CacheLookup(result string) {
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
