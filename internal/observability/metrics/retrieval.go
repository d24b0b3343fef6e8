package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

// RetrievalMetrics implements ports.RetrievalObserver: per-(corpus, source)
// call outcomes plus candidate/fused pool sizes for the fusion pipeline.
type RetrievalMetrics struct {
	sourceCallsTotal   *prometheus.CounterVec
	sourceCallDuration *prometheus.HistogramVec
	candidatePoolSize  prometheus.Histogram
	fusedPoolSize      prometheus.Histogram
	resultsReturned    prometheus.Histogram
}

// NewRetrievalMetrics registers retrieval collectors on an existing registry
// so one /metrics endpoint serves the whole process.
func NewRetrievalMetrics(service string, registry *prometheus.Registry) *RetrievalMetrics {
	constLabels := prometheus.Labels{"service": service}

	sourceCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "source_calls_total",
			Help:        "Candidate source calls by corpus, source kind, and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"corpus", "source", "status"},
	)
	sourceCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "source_call_duration_seconds",
			Help:        "Candidate source call duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"source"},
	)
	candidatePoolSize := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "candidate_pool_size",
			Help:        "Raw candidate pool size before fusion.",
			Buckets:     []float64{0, 5, 10, 20, 40, 80, 160, 320},
			ConstLabels: constLabels,
		},
	)
	fusedPoolSize := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "fused_pool_size",
			Help:        "Distinct passages after reciprocal rank fusion.",
			Buckets:     []float64{0, 5, 10, 20, 40, 80, 160, 320},
			ConstLabels: constLabels,
		},
	)
	resultsReturned := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "results_returned",
			Help:        "Results returned after reranking and truncation.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(
		sourceCallsTotal,
		sourceCallDuration,
		candidatePoolSize,
		fusedPoolSize,
		resultsReturned,
	)

	return &RetrievalMetrics{
		sourceCallsTotal:   sourceCallsTotal,
		sourceCallDuration: sourceCallDuration,
		candidatePoolSize:  candidatePoolSize,
		fusedPoolSize:      fusedPoolSize,
		resultsReturned:    resultsReturned,
	}
}

func (m *RetrievalMetrics) ObserveSourceCall(corpus string, source domain.SourceKind, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.sourceCallsTotal.WithLabelValues(corpus, string(source), status).Inc()
	m.sourceCallDuration.WithLabelValues(string(source)).Observe(duration.Seconds())
}

func (m *RetrievalMetrics) ObservePool(candidates, fused, returned int) {
	m.candidatePoolSize.Observe(float64(candidates))
	m.fusedPoolSize.Observe(float64(fused))
	m.resultsReturned.Observe(float64(returned))
}
