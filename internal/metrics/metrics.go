package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	EncodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poultryqa",
			Name:      "encode_requests_total",
			Help:      "Total number of query encoding attempts",
		},
		[]string{"backend", "status"},
	)

	EncodeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poultryqa",
			Name:      "encode_request_duration_seconds",
			Help:      "Query encoding duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend"},
	)

	EncodeTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poultryqa",
			Name:      "encode_tokens_total",
			Help:      "Total embedding tokens consumed by the remote backend",
		},
		[]string{"model", "type"},
	)

	PartitionLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poultryqa",
			Name:      "partition_loads_total",
			Help:      "Partition load attempts by outcome",
		},
		[]string{"partition", "status"},
	)

	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poultryqa",
			Name:      "retrievals_total",
			Help:      "Retrieval requests by outcome (accepted, fallback, none)",
		},
		[]string{"outcome"},
	)

	PartitionsTried = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "poultryqa",
			Name:      "partitions_tried_per_query",
			Help:      "Number of partition candidates attempted per query",
			Buckets:   []float64{1, 2, 3, 4, 5, 6},
		},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poultryqa",
			Name:      "embedding_cache_total",
			Help:      "Query-embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registered bool

// RegisterMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterMetrics() {
	if registered {
		return
	}
	prometheus.MustRegister(EncodeRequestsTotal)
	prometheus.MustRegister(EncodeRequestDuration)
	prometheus.MustRegister(EncodeTokensTotal)
	prometheus.MustRegister(PartitionLoadsTotal)
	prometheus.MustRegister(RetrievalsTotal)
	prometheus.MustRegister(PartitionsTried)
	prometheus.MustRegister(EmbeddingCacheTotal)
	registered = true
}
