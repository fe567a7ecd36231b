// Package metrics exposes Prometheus instrumentation for scans and
// graph writes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the pipeline updates. Collectors hang
// off an explicit registry so parallel tests never collide on global
// state.
type Metrics struct {
	registry *prometheus.Registry

	FilesScanned  *prometheus.CounterVec
	FilesSkipped  *prometheus.CounterVec
	NodesWritten  prometheus.Counter
	EdgesWritten  prometheus.Counter
	EdgesDropped  prometheus.Counter
	ScanDuration  prometheus.Histogram
	WriteDuration prometheus.Histogram
}

// New builds and registers the collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.FilesScanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "synapse",
		Name:      "files_scanned_total",
		Help:      "Source files successfully scanned, by language.",
	}, []string{"language"})
	m.FilesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "synapse",
		Name:      "files_skipped_total",
		Help:      "Source files skipped due to parse failures, by language.",
	}, []string{"language"})
	m.NodesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "synapse",
		Name:      "graph_nodes_written_total",
		Help:      "Graph nodes upserted.",
	})
	m.EdgesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "synapse",
		Name:      "graph_edges_written_total",
		Help:      "Graph edges upserted.",
	})
	m.EdgesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "synapse",
		Name:      "graph_edges_dropped_total",
		Help:      "Edges dropped during endpoint validation.",
	})
	m.ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "synapse",
		Name:      "scan_duration_seconds",
		Help:      "Wall time of a full project scan.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	m.WriteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "synapse",
		Name:      "write_duration_seconds",
		Help:      "Wall time of a graph write.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	m.registry.MustRegister(
		m.FilesScanned, m.FilesSkipped,
		m.NodesWritten, m.EdgesWritten, m.EdgesDropped,
		m.ScanDuration, m.WriteDuration,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
