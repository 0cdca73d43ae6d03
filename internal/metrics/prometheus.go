package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts accepted uploads by kind.
	JobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certqueue_jobs_submitted_total",
			Help: "Total number of submitted batch jobs",
		},
		[]string{"kind"},
	)

	// JobsProcessed counts jobs that reached a terminal state, by kind and status.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certqueue_jobs_processed_total",
			Help: "Total number of batch jobs processed to a terminal state",
		},
		[]string{"kind", "status"},
	)

	// JobDuration tracks wall time from claim to terminal state.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certqueue_job_duration_seconds",
			Help:    "Duration of batch job processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27m
		},
		[]string{"kind"},
	)

	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certqueue_items_processed_total",
			Help: "Total number of batch items processed",
		},
		[]string{"outcome"},
	)

	// WorkersActive tracks the number of workers currently processing a job.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "certqueue_workers_active",
			Help: "Number of currently active worker goroutines",
		},
	)

	ArtifactsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certqueue_artifacts_generated_total",
			Help: "Total number of artifacts written to disk",
		},
		[]string{"kind"},
	)

	ArtifactCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certqueue_artifact_cache_hits_total",
			Help: "Total number of downloads served from an existing artifact",
		},
		[]string{"kind"},
	)

	// DuplicateDeliveries counts task deliveries skipped by the claim or lease.
	DuplicateDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "certqueue_duplicate_deliveries_total",
			Help: "Total number of task deliveries ignored as duplicates",
		},
	)
)
