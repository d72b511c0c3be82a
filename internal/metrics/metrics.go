package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clubhub_http_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	ExamAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_exam_attempts_total",
			Help: "Exam attempts by outcome (started, passed, failed, expired)",
		},
		[]string{"outcome"},
	)

	ExamScoreHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clubhub_exam_score_percentage",
			Help:    "Distribution of submitted exam percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	ActivityRegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_activity_registrations_total",
			Help: "Activity registration changes by action (register, unregister)",
		},
		[]string{"action"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clubhub_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_job_runs_total",
			Help: "Background job runs by job and result",
		},
		[]string{"job", "result"},
	)
)
