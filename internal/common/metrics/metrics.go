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

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_submissions_total",
			Help: "Form submissions by application type and outcome",
		},
		[]string{"application_type", "outcome"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_submission_duration_seconds",
			Help:    "End-to-end submission pipeline duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"application_type"},
	)

	FileUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_file_uploads_total",
			Help: "Uploaded documents by intake stage (staged, promoted, rejected, failed, discarded)",
		},
		[]string{"stage"},
	)

	FileUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portal_file_upload_bytes",
			Help:    "Size of staged uploads",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
		},
	)

	TrackingLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_tracking_lookups_total",
			Help: "Tracking lookups by result (found, not_found, invalid, error)",
		},
		[]string{"result"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_requests_total",
			Help: "Application cache requests by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
