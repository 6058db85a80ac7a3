package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/geodig/internal/model"
)

// statusError labels orchestrations aborted by a shared-log failure, as
// opposed to the three ordinary outcomes.
const statusError = "error"

var (
	orchestrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geodig_orchestrations_total",
			Help: "Total number of orchestrations by final status.",
		},
		[]string{"status"},
	)

	orchestrationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geodig_orchestration_duration_seconds",
			Help:    "End-to-end orchestration duration from publish to aggregate, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	tasksPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geodig_tasks_published_total",
			Help: "Total number of tasks appended to the shared task stream.",
		},
	)

	resultsCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geodig_results_collected_total",
			Help: "Total number of result entries read off the result stream, by whether they matched the collecting window.",
		},
		[]string{"matched"},
	)

	openWindows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geodig_open_windows",
			Help: "Number of currently open correlation windows.",
		},
	)
)

func init() {
	prometheus.MustRegister(orchestrationsTotal)
	prometheus.MustRegister(orchestrationDuration)
	prometheus.MustRegister(tasksPublished)
	prometheus.MustRegister(resultsCollected)
	prometheus.MustRegister(openWindows)

	// Pre-initialize counter label combinations so they appear in /metrics
	// with value 0 from startup, rather than only after first observation.
	for _, s := range []string{model.OutcomeSuccess, model.OutcomePartial, model.OutcomeTimeout, statusError} {
		orchestrationsTotal.WithLabelValues(s)
	}
	resultsCollected.WithLabelValues("true")
	resultsCollected.WithLabelValues("false")
}
