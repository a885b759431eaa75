// Package metrics exposes Prometheus metrics for workflow execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepflow_runs_started_total",
			Help: "Total workflow runs started, by workflow name",
		},
		[]string{"workflow"},
	)

	runsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stepflow_runs_finished_total",
			Help: "Total workflow runs finished, by workflow name and terminal state",
		},
		[]string{"workflow", "state"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stepflow_run_duration_seconds",
			Help:    "Wall-clock duration of workflow runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"workflow"},
	)

	stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stepflow_step_duration_seconds",
			Help:    "Wall-clock duration of step executions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"workflow", "step", "status"},
	)
)

// RecordRunStarted increments the started-runs counter.
func RecordRunStarted(workflow string) {
	runsStarted.WithLabelValues(workflow).Inc()
}

// RecordRunFinished increments the finished-runs counter and observes the
// run duration. state should be a terminal run state (completed, failed).
func RecordRunFinished(workflow, state string, duration time.Duration) {
	runsFinished.WithLabelValues(workflow, state).Inc()
	runDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordStep observes a step execution. status should be one of
// "completed" or "failed", matching the terminal step event types.
func RecordStep(workflow, step, status string, duration time.Duration) {
	stepDuration.WithLabelValues(workflow, step, status).Observe(duration.Seconds())
}
