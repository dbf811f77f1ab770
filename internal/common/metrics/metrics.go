package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_scheduler_ticks_total",
			Help: "Scheduler ticks by trigger",
		},
		[]string{"trigger"},
	)

	SchedulerAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_scheduler_alerts_total",
			Help: "Alerts handled by the scheduler by outcome (notified, checked, skipped, failed)",
		},
		[]string{"outcome"},
	)

	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alert_scheduler_tick_duration_seconds",
			Help:    "Wall time of a full scheduler tick",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "catalog_query_duration_seconds",
			Help: "Job catalog query latency by backend and operation",
		},
		[]string{"backend", "operation"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications delivered by channel",
		},
		[]string{"channel", "status"},
	)
)
