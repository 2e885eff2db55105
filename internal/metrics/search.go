package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval pipeline Prometheus metrics.
var (
	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "filmrag",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"cached"},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "filmrag",
			Name:      "search_results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
		},
	)

	SearchStageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filmrag",
			Name:      "search_stage_total",
			Help:      "Pipeline stage transitions",
		},
		[]string{"stage"},
	)

	CacheResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filmrag",
			Name:      "cache_results_total",
			Help:      "Result cache lookups by namespace",
		},
		[]string{"namespace", "result"}, // "hit" / "miss"
	)

	DependencyFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filmrag",
			Name:      "dependency_failures_total",
			Help:      "Absorbed failures of external collaborators",
		},
		[]string{"dependency"},
	)

	IndexRebuildTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filmrag",
			Name:      "index_rebuild_total",
			Help:      "Index rebuilds by outcome",
		},
		[]string{"status"},
	)

	SparseDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "filmrag",
			Name:      "sparse_documents",
			Help:      "Documents in the served sparse snapshot",
		},
	)

	RerankDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "filmrag",
			Name:      "rerank_duration_seconds",
			Help:      "Cross-encoder rerank duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"outcome"}, // "scored" / "failed" / "skipped"
	)

	RerankCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "filmrag",
			Name:      "rerank_candidates",
			Help:      "Candidates sent to the reranker per search",
			Buckets:   []float64{1, 5, 10, 20, 40, 80, 160},
		},
	)

	CacheConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "filmrag",
			Name:      "cache_connected",
			Help:      "1 while the result cache reaches its Redis tier",
		},
	)

	IndexLastBuildTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "filmrag",
			Name:      "index_last_build_timestamp_seconds",
			Help:      "Unix time of the last successful rebuild",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(SearchStageTotal)
	prometheus.MustRegister(CacheResultsTotal)
	prometheus.MustRegister(DependencyFailuresTotal)
	prometheus.MustRegister(IndexRebuildTotal)
	prometheus.MustRegister(SparseDocuments)
	prometheus.MustRegister(IndexLastBuildTimestamp)
	prometheus.MustRegister(RerankDuration)
	prometheus.MustRegister(RerankCandidates)
	prometheus.MustRegister(CacheConnected)
	searchMetricsRegistered = true
}

// StageCounter reports pipeline stage transitions to SearchStageTotal.
type StageCounter struct{}

// Enter implements the search stage observer.
func (StageCounter) Enter(stage string) {
	SearchStageTotal.WithLabelValues(stage).Inc()
}

// ObserveRerank records one rerank call over n candidates.
func ObserveRerank(outcome string, n int, took time.Duration) {
	RerankDuration.WithLabelValues(outcome).Observe(took.Seconds())
	RerankCandidates.Observe(float64(n))
}

// DependencyFailure counts an absorbed failure of dep.
func DependencyFailure(dep string) {
	DependencyFailuresTotal.WithLabelValues(dep).Inc()
}
