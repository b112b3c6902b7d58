package observability

import "github.com/prometheus/client_golang/prometheus"

// API series are keyed by the mux route pattern, which already carries the
// method (for example "POST /v1/sql"). Raw URL paths are never used as labels.
var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querystudio_api_requests_total",
			Help: "API requests by route pattern and response status.",
		},
		[]string{"route", "status"},
	)

	// Question, SQL and pipeline routes block on model calls, so the upper
	// buckets reach the agent's per-question timeout.
	apiRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querystudio_api_request_duration_seconds",
			Help:    "API latency by route pattern.",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"route"},
	)

	apiRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "querystudio_api_requests_in_flight",
			Help: "API requests currently being served.",
		},
	)
)

func init() {
	prometheus.MustRegister(apiRequestsTotal, apiRequestDurationSeconds, apiRequestsInFlight)
}
