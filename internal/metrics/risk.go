package metrics

import "github.com/prometheus/client_golang/prometheus"

// Decision-support Prometheus metrics.
var (
	HazardAssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hazard_assessments_total",
			Help:      "Hazard assessments produced, by kind and band",
		},
		[]string{"kind", "level"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Number of knowledge documents returned per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		},
	)

	SinkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed writes to the assessment journal and alert stream",
		},
		[]string{"sink"}, // journal / alerts
	)

	AlertsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Risk alerts published, by kind and band",
		},
		[]string{"kind", "level"},
	)
)

var riskMetricsRegistered bool

// RegisterRiskMetrics registers hazard, retrieval and sink metrics. Must be called once from main.
func RegisterRiskMetrics() {
	if riskMetricsRegistered {
		return
	}
	prometheus.MustRegister(HazardAssessmentsTotal)
	prometheus.MustRegister(RetrievalResults)
	prometheus.MustRegister(SinkErrorsTotal)
	prometheus.MustRegister(AlertsPublishedTotal)
	riskMetricsRegistered = true
}
