package worker

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/geodig/internal/model"
)

// Task statuses outside the result contract: entries that never produced a
// result, and results that could not be published.
const (
	statusSkipped = "skipped"
	statusError   = "error"
)

var (
	workerTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geodig_worker_tasks_total",
			Help: "Total number of task entries handled, by result status.",
		},
		[]string{"status"},
	)

	workerTaskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geodig_worker_task_duration_seconds",
			Help:    "Time from task decode to result publish, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	workerLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geodig_worker_lookups_total",
			Help: "Total number of DNS lookups performed, by record type and outcome.",
		},
		[]string{"record_type", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(workerTasks)
	prometheus.MustRegister(workerTaskDuration)
	prometheus.MustRegister(workerLookups)

	// Pre-initialize status labels so they report 0 from startup.
	for _, s := range []string{model.StatusSuccess, model.StatusFailed, statusSkipped, statusError} {
		workerTasks.WithLabelValues(s)
	}
}
