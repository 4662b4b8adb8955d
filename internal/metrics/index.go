package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index client Prometheus metrics.
var (
	IndexRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emporia",
			Name:      "index_requests_total",
			Help:      "Total number of vector index requests",
		},
		[]string{"op", "outcome"}, // outcome: success, transport, service, decode, not_found
	)

	IndexRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "emporia",
			Name:      "index_request_duration_seconds",
			Help:      "Vector index request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	IndexEmptyResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "emporia",
			Name:      "index_empty_responses_total",
			Help:      "Total zero-length successful index responses",
		},
		[]string{"op"},
	)
)

// RegisterIndexMetrics registers index client metrics with the default registry.
// Must be called exactly once (explicit registration, no init()).
func RegisterIndexMetrics() {
	prometheus.MustRegister(IndexRequestsTotal)
	prometheus.MustRegister(IndexRequestDuration)
	prometheus.MustRegister(IndexEmptyResponsesTotal)
}
