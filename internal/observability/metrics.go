package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultNoop  = "noop"
	ResultError = "error"
)

var (
	// ledgerMutationTotal counts ledger mutations by operation and result
	ledgerMutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circle_ledger_mutation_total",
		Help: "Total tag association mutations by operation and result",
	}, []string{"operation", "result"})

	// invariantViolationTotal counts usage count invariant violations
	invariantViolationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circle_invariant_violation_total",
		Help: "Total ledger invariant violations by operation",
	}, []string{"operation"})

	// searchTotal counts searches by kind
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circle_search_total",
		Help: "Total relevance searches by kind",
	}, []string{"kind"})

	// searchDuration tracks search latency
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "circle_search_duration_seconds",
		Help:    "Relevance search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"kind"})

	// searchResults tracks result set sizes
	searchResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "circle_search_results",
		Help:    "Number of results returned per search",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	}, []string{"kind"})

	// classifierTotal counts classifications by implementation
	classifierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circle_classifier_total",
		Help: "Total tag classifications by classifier",
	}, []string{"classifier"})

	// classifierFallbackTotal counts LLM classifier fallbacks to rules by reason
	classifierFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circle_classifier_fallback_total",
		Help: "Total LLM classifier fallbacks to rules by reason",
	}, []string{"reason"})
)

// RecordLedgerMutation records one attach, detach, replace or delete.
func RecordLedgerMutation(operation, result string) {
	ledgerMutationTotal.WithLabelValues(operation, result).Inc()
}

// RecordInvariantViolation records a rolled back usage count underflow.
func RecordInvariantViolation(operation string) {
	invariantViolationTotal.WithLabelValues(operation).Inc()
}

// RecordSearch records a finished search.
func RecordSearch(kind string, duration time.Duration, results int) {
	searchTotal.WithLabelValues(kind).Inc()
	searchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	searchResults.WithLabelValues(kind).Observe(float64(results))
}

// RecordClassification records a classification by the named classifier.
func RecordClassification(classifier string) {
	classifierTotal.WithLabelValues(classifier).Inc()
}

// RecordClassifierFallback records an LLM classification answered by rules.
func RecordClassifierFallback(reason string) {
	classifierFallbackTotal.WithLabelValues(reason).Inc()
}
