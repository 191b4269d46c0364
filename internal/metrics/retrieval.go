package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric exported by the service.
const Namespace = "llamarouter"

// Retrieval, routing and query Prometheus metrics.
var (
	RetrievalAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_attempts_total",
			Help:      "Retrieval attempts by target and outcome",
		},
		[]string{"target", "outcome"}, // success, transient, fatal, cancelled
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Duration of a single retrieval attempt in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"target"},
	)

	RetrievalPassages = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "retrieval_passages",
			Help:      "Number of passages returned per successful retrieval",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"target"},
	)

	RoutingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "routing_decisions_total",
			Help:      "Routing decisions by selected target and status",
		},
		[]string{"target", "status"},
	)

	RouteCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "route_cache_total",
			Help:      "Routing decision cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queries_total",
			Help:      "Orchestrated queries by outcome",
		},
		[]string{"outcome"}, // success, empty, input_error, routing_error, dependency_error, cancelled
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval, routing and query metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalAttemptsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalPassages)
	prometheus.MustRegister(RoutingDecisionsTotal)
	prometheus.MustRegister(RouteCacheTotal)
	prometheus.MustRegister(QueriesTotal)
	retrievalMetricsRegistered = true
}
