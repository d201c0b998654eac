// Package metrics holds the Prometheus instruments of the room engine. All
// collectors are registered with the global registry, so importing this
// package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meeting_rooms"

var (
	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Lifecycle job runs by job and outcome (succeeded, failed, locked).",
		}, []string{"job", "outcome"})

	JobRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_run_duration_seconds",
			Help:      "Wall time of lifecycle job runs that acquired their lock.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"job"})

	JobItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_items_total",
			Help:      "Rows processed by lifecycle job steps.",
		}, []string{"job", "step"})

	ChunkRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_chunk_retries_total",
			Help:      "Chunk attempts that failed and were retried.",
		}, []string{"job", "step"})

	PinCollisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dial_in_collisions_total",
			Help:      "Generated dial-in codes that were already taken.",
		})

	SeriesMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meeting_mutations_total",
			Help:      "Meeting create, update and delete requests by error kind.",
		}, []string{"operation", "error_kind"})
)

func init() {
	prometheus.MustRegister(
		JobRunsTotal,
		JobRunDuration,
		JobItemsTotal,
		ChunkRetriesTotal,
		PinCollisionsTotal,
		SeriesMutationsTotal,
	)
}

// ErrorKindLabel returns the label used for successful requests when kind is empty.
func ErrorKindLabel(kind string) string {
	if kind == "" {
		return "none"
	}
	return kind
}
