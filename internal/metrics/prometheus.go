package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion worker

var (
	// Provider fetch metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsync_api_calls_total",
			Help: "Total number of provider API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sportsync_api_call_duration_seconds",
			Help:    "Duration of provider API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsync_api_retries_total",
			Help: "Total number of provider API retries",
		},
		[]string{"endpoint", "reason"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsync_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sportsync_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sportsync_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sportsync_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportsync_cache_hits_total",
			Help: "Total number of fetch cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportsync_cache_misses_total",
			Help: "Total number of fetch cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sportsync_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Job metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsync_job_runs_total",
			Help: "Total number of dispatched job runs",
		},
		[]string{"job_type", "status"},
	)

	JobRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sportsync_job_run_duration_seconds",
			Help:    "Duration of job handler runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"job_type"},
	)

	JobsTerminalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsync_job_terminal_failures_total",
			Help: "Total number of jobs that exhausted their attempts",
		},
		[]string{"job_type"},
	)

	LeasesRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportsync_leases_recovered_total",
			Help: "Total number of stale job leases returned to pending",
		},
	)

	DispatchIdleTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportsync_dispatch_idle_total",
			Help: "Total number of dispatch passes that found nothing due",
		},
	)

	// Backfill metrics
	SeasonAssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsync_season_assessments_total",
			Help: "Total number of season health assessments by outcome",
		},
		[]string{"status"},
	)

	SeasonScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsync_season_scrapes_total",
			Help: "Total number of season scrapes by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	// Admin metrics
	AdminActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsync_admin_actions_total",
			Help: "Total number of administrative actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sportsync_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Worker metrics
	WorkerLoopIterations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sportsync_worker_loop_iterations_total",
			Help: "Total number of worker loop iterations",
		},
	)

	WorkerLoopDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sportsync_worker_loop_duration_seconds",
			Help:    "Duration of worker loop iterations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sportsync_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sportsync_last_successful_run_timestamp",
			Help: "Timestamp of the last successful job run",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordAPIRetry records a retried API call
func RecordAPIRetry(endpoint, reason string) {
	APIRetriesTotal.WithLabelValues(endpoint, reason).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheOperation records a cache operation duration
func RecordCacheOperation(operation string, duration float64) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordJobRun records a finished job run
func RecordJobRun(jobType, status string, duration float64) {
	JobRunsTotal.WithLabelValues(jobType, status).Inc()
	JobRunDuration.WithLabelValues(jobType).Observe(duration)

	if status == "success" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordTerminalFailure records a job that exhausted its attempts
func RecordTerminalFailure(jobType string) {
	JobsTerminalFailures.WithLabelValues(jobType).Inc()
}

// RecordLeasesRecovered records stale leases returned to pending
func RecordLeasesRecovered(n int) {
	LeasesRecoveredTotal.Add(float64(n))
}

// RecordDispatchIdle records a dispatch pass with nothing to do
func RecordDispatchIdle() {
	DispatchIdleTotal.Inc()
}

// RecordSeasonAssessment records a season health classification
func RecordSeasonAssessment(status string) {
	SeasonAssessmentsTotal.WithLabelValues(status).Inc()
}

// RecordSeasonScrape records a season scrape outcome
func RecordSeasonScrape(mode, status string) {
	SeasonScrapesTotal.WithLabelValues(mode, status).Inc()
}

// RecordAdminAction records an administrative action outcome
func RecordAdminAction(action, outcome string) {
	AdminActionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

// RecordWorkerIteration records a worker loop iteration
func RecordWorkerIteration(duration float64) {
	WorkerLoopIterations.Inc()
	WorkerLoopDuration.Observe(duration)
}
