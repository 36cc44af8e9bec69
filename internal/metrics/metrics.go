package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threat_analyses_total",
		Help: "Total number of stored analyses by risk level",
	}, []string{"risk_level"})

	AnalysisFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threat_analysis_failures_total",
		Help: "Analyses that could not be stored",
	})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threat_analysis_duration_seconds",
		Help:    "Time from upload to stored record",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
	})

	VerdictSource = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threat_verdict_source_total",
		Help: "Verdicts by producer (provider or heuristic)",
	}, []string{"source"})

	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threat_provider_request_duration_seconds",
		Help:    "Duration of verdict provider calls",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20},
	}, []string{"success"})

	AuthResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threat_auth_results_total",
		Help: "Authentication check outcomes",
	}, []string{"check", "status"})

	DNSCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threat_dns_cache_total",
		Help: "DNS answer cache lookups",
	}, []string{"result"})

	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threat_store_operations_total",
		Help: "Analysis store operations",
	}, []string{"operation", "success"})

	APIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threat_api_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5},
	}, []string{"path", "method", "status"})
)

// Success renders an error outcome as a label value
func Success(err error) string {
	if err != nil {
		return "false"
	}
	return "true"
}
