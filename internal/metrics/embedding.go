// Package metrics defines the Prometheus collectors exported by kiku.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiku",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kiku",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"provider"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiku",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// Generation metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiku",
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests",
		},
		[]string{"provider", "status"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kiku",
			Name:      "generation_duration_seconds",
			Help:      "Time from opening the completion stream to draining it",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"provider"},
	)

	GenerationFragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiku",
			Name:      "generation_fragments_total",
			Help:      "Total stream fragments received from generation backends",
		},
		[]string{"provider"},
	)
)

// Pipeline metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kiku",
			Name:      "queries_total",
			Help:      "Total pipeline queries by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	RetrievedChunks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kiku",
			Name:      "retrieved_chunks",
			Help:      "Number of chunks returned by a vector search",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	ContextChars = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kiku",
			Name:      "context_chars",
			Help:      "Rune length of the assembled grounding context",
			Buckets:   prometheus.ExponentialBuckets(250, 2, 8),
		},
	)

	IndexRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kiku",
			Name:      "index_records",
			Help:      "Number of records in the loaded vector index",
		},
	)
)

var registerOnce sync.Once

// Register registers the embedding, generation and pipeline collectors. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingCacheTotal,
			GenerationRequestsTotal,
			GenerationDuration,
			GenerationFragmentsTotal,
			QueriesTotal,
			RetrievedChunks,
			ContextChars,
			IndexRecords,
		)
	})
}
