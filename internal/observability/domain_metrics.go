package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querystudio_model_calls_total",
			Help: "Total number of chat model calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querystudio_model_call_duration_seconds",
			Help:    "Chat model call latency by operation.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"operation"},
	)
	modelRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querystudio_model_retries_total",
			Help: "Total number of failed model attempts that were retried or exhausted.",
		},
		[]string{"operation"},
	)
	questionsGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querystudio_questions_generated_total",
			Help: "Total number of natural-language questions produced by the generator.",
		},
	)
	agentResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querystudio_agent_results_total",
			Help: "Total number of text-to-SQL results by final status.",
		},
		[]string{"status"},
	)
	agentDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querystudio_agent_duration_seconds",
			Help:    "Wall time spent per question in the text-to-SQL agent.",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 60, 120, 300},
		},
	)
	sampleExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querystudio_sample_executions_total",
			Help: "Total number of warehouse sample executions by outcome.",
		},
		[]string{"outcome"},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querystudio_exports_total",
			Help: "Total number of dataset exports by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		modelCallsTotal,
		modelCallDurationSeconds,
		modelRetriesTotal,
		questionsGeneratedTotal,
		agentResultsTotal,
		agentDurationSeconds,
		sampleExecutionsTotal,
		exportsTotal,
	)
}

func ObserveModelCall(operation string, err error, elapsed time.Duration) {
	modelCallsTotal.WithLabelValues(operation, outcome(err)).Inc()
	modelCallDurationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func IncrementModelRetry(operation string) {
	modelRetriesTotal.WithLabelValues(operation).Inc()
}

func AddGeneratedQuestions(count int) {
	if count > 0 {
		questionsGeneratedTotal.Add(float64(count))
	}
}

func ObserveAgentResult(status string, elapsed time.Duration) {
	agentResultsTotal.WithLabelValues(status).Inc()
	agentDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveSampleExecution(failed bool) {
	if failed {
		sampleExecutionsTotal.WithLabelValues("error").Inc()
		return
	}
	sampleExecutionsTotal.WithLabelValues("ok").Inc()
}

func ObserveExport(err error) {
	exportsTotal.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
