// Package metrics defines the Prometheus instruments exported by hikelog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MigrationRuns counts guest migrations by terminal outcome
	// (success, partial, failed, error).
	MigrationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikelog_migration_runs_total",
			Help: "Guest data migrations by terminal outcome",
		},
		[]string{"outcome"},
	)

	// MigrationItems counts migrated records and assets by kind and outcome.
	MigrationItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikelog_migration_items_total",
			Help: "Records and assets processed by guest migrations",
		},
		[]string{"kind", "outcome"},
	)

	MigrationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hikelog_migration_duration_seconds",
			Help:    "Wall time of guest migrations",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// RetryAttempts counts attempts made by the retry executor.
	// outcome is success, retry, exhausted or rejected.
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikelog_retry_attempts_total",
			Help: "Attempts made by the retry executor",
		},
		[]string{"operation", "outcome"},
	)

	RepositoryResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikelog_repository_resolutions_total",
			Help: "Repository resolutions by entity family and selected backend",
		},
		[]string{"family", "backend"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hikelog_circuit_breaker_state",
			Help: "Remote store circuit breaker state",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikelog_circuit_breaker_requests_total",
			Help: "Remote store requests by breaker outcome",
		},
		[]string{"name", "outcome"},
	)

	ImagesCleaned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hikelog_images_cleaned_total",
			Help: "Synced local images removed by retention cleanup",
		},
	)
)
