package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the statistics pipeline

var (
	// Source download metrics
	SourceDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_source_downloads_total",
			Help: "Total number of remote source downloads",
		},
		[]string{"season", "status"},
	)

	SourceDownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thaileague_source_download_duration_seconds",
			Help:    "Duration of source downloads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"season"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thaileague_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thaileague_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thaileague_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// Pipeline metrics
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_pipeline_runs_total",
			Help: "Total number of pipeline executions",
		},
		[]string{"season", "status"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thaileague_pipeline_duration_seconds",
			Help:    "Duration of pipeline executions in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"season"},
	)

	PhaseFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_pipeline_phase_failures_total",
			Help: "Total number of pipeline phase failures",
		},
		[]string{"phase"},
	)

	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_records_processed_total",
			Help: "Total number of season records processed",
		},
		[]string{"season"},
	)

	// Matching metrics
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_matches_total",
			Help: "Total number of identity match outcomes by bucket",
		},
		[]string{"bucket"},
	)

	// Scoring metrics
	ScoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_pdi_calculations_total",
			Help: "Total number of PDI score calculations",
		},
		[]string{"status"},
	)

	// Prediction metrics
	PredictionsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_predictions_served_total",
			Help: "Total number of PDI predictions served",
		},
		[]string{"model", "source"},
	)

	// Scheduler metrics
	ScheduledUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_scheduled_updates_total",
			Help: "Total number of scheduled update runs",
		},
		[]string{"action", "status"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thaileague_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Stats gauges
	PlayersRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thaileague_players_registered_total",
			Help: "Total number of professional players in the registry",
		},
	)

	SeasonsImported = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thaileague_seasons_imported_total",
			Help: "Total number of seasons with completed imports",
		},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thaileague_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulImport = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thaileague_last_successful_import_timestamp",
			Help: "Timestamp of last successful season import",
		},
	)
)

// RecordSourceDownload records a source download metric
func RecordSourceDownload(season, status string, duration float64) {
	SourceDownloadsTotal.WithLabelValues(season, status).Inc()
	SourceDownloadDuration.WithLabelValues(season).Observe(duration)
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit(cache string) {
	CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(cache string) {
	CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordPipelineRun records a pipeline execution
func RecordPipelineRun(season, status string, duration float64) {
	PipelineRunsTotal.WithLabelValues(season, status).Inc()
	PipelineDuration.WithLabelValues(season).Observe(duration)

	if status == "completed" {
		LastSuccessfulImport.SetToCurrentTime()
	}
}

// RecordPhaseFailure records a pipeline phase failure
func RecordPhaseFailure(phase string) {
	PhaseFailuresTotal.WithLabelValues(phase).Inc()
}

// RecordMatch records an identity match outcome
func RecordMatch(bucket string, count int) {
	MatchesTotal.WithLabelValues(bucket).Add(float64(count))
}

// RecordScore records a PDI calculation outcome
func RecordScore(status string) {
	ScoresComputed.WithLabelValues(status).Inc()
}

// RecordPrediction records a served prediction
func RecordPrediction(model, source string) {
	PredictionsServed.WithLabelValues(model, source).Inc()
}

// RecordScheduledUpdate records a scheduled update run
func RecordScheduledUpdate(action, status string) {
	ScheduledUpdatesTotal.WithLabelValues(action, status).Inc()
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

// UpdateRegistryStats updates registry-level statistics
func UpdateRegistryStats(players, seasons int64) {
	PlayersRegistered.Set(float64(players))
	SeasonsImported.Set(float64(seasons))
}
