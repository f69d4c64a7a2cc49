// ABOUTME: Prometheus collectors for ingestion and retrieval
// ABOUTME: Registered on a private registry that the HTTP server exposes at /metrics
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitechat"

// Metrics groups every collector the pipeline reports to
type Metrics struct {
	registry *prometheus.Registry

	SourcesTotal      *prometheus.CounterVec
	ChunksIndexed     prometheus.Counter
	IngestRuns        *prometheus.CounterVec
	IngestDuration    prometheus.Histogram
	EmbedDuration     prometheus.Histogram
	RetrievalsTotal   *prometheus.CounterVec
	RetrievalDuration prometheus.Histogram
	RetrievalChunks   prometheus.Histogram
}

// New builds and registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SourcesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_sources_total",
			Help:      "Sources processed by ingestion, by outcome",
		}, []string{"status"}),
		ChunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_indexed_total",
			Help:      "Chunks embedded and upserted into the vector index",
		}),
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Ingestion runs, by result",
		}, []string{"result"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      "Wall time of a full ingestion run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		EmbedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embed_duration_seconds",
			Help:      "Latency of single embedding calls",
			Buckets:   prometheus.DefBuckets,
		}),
		RetrievalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Context retrievals, by result (hit, empty, degraded)",
		}, []string{"result"}),
		RetrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Latency of embed plus query on the retrieval path",
			Buckets:   prometheus.DefBuckets,
		}),
		RetrievalChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_chunks",
			Help:      "Non-empty chunks joined into a context block",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
	}

	m.registry.MustRegister(
		m.SourcesTotal,
		m.ChunksIndexed,
		m.IngestRuns,
		m.IngestDuration,
		m.EmbedDuration,
		m.RetrievalsTotal,
		m.RetrievalDuration,
		m.RetrievalChunks,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSince records the seconds elapsed since start on h
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// RecordSource counts one ingested source by outcome
func (m *Metrics) RecordSource(status string, chunks int) {
	if m == nil {
		return
	}
	m.SourcesTotal.WithLabelValues(status).Inc()
	if chunks > 0 {
		m.ChunksIndexed.Add(float64(chunks))
	}
}

// RecordRun counts a finished or aborted ingestion run
func (m *Metrics) RecordRun(result string, start time.Time) {
	if m == nil {
		return
	}
	m.IngestRuns.WithLabelValues(result).Inc()
	ObserveSince(m.IngestDuration, start)
}

// ObserveEmbed records one embedding call
func (m *Metrics) ObserveEmbed(start time.Time) {
	if m == nil {
		return
	}
	ObserveSince(m.EmbedDuration, start)
}

// RecordRetrieval records one retrieval with the number of chunks it returned
func (m *Metrics) RecordRetrieval(result string, chunks int, start time.Time) {
	if m == nil {
		return
	}
	m.RetrievalsTotal.WithLabelValues(result).Inc()
	m.RetrievalChunks.Observe(float64(chunks))
	ObserveSince(m.RetrievalDuration, start)
}
