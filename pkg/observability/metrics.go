package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// AnalysesTotal counts per-parcel analyses by stage and outcome
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelsight_analyses_total",
			Help: "Total number of analyses run",
		},
		[]string{"stage", "status"}, // status: ok, no_data, insufficient_data, failed
	)

	// AnalysisDuration measures analysis duration in seconds
	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parcelsight_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"stage"},
	)

	// FusedRows tracks the row count of the last fused table
	FusedRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parcelsight_fused_rows",
			Help: "Number of rows in the last fused table",
		},
		[]string{"table"}, // table: fused, features
	)

	// RiskSkippedRows counts rows the risk scorer could not score
	RiskSkippedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelsight_risk_skipped_rows_total",
			Help: "Total number of rows skipped by the risk scorer",
		},
		[]string{"reason"},
	)

	// BatchRunsTotal counts batch runs
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelsight_batch_runs_total",
			Help: "Total number of batch runs",
		},
		[]string{"trigger", "status"}, // trigger: cli, schedule, api; status: success, partial, failed
	)

	// BatchFailures tracks the number of parcel failures in the last batch run
	BatchFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parcelsight_batch_failures",
			Help: "Number of parcel failures in the last batch run",
		},
	)

	// ReportsPublished counts reports written to the results sink
	ReportsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelsight_reports_published_total",
			Help: "Total number of reports published",
		},
		[]string{"kind", "status"}, // kind: batch, parcel
	)

	// TasksEnqueued counts parcel analysis tasks enqueued
	TasksEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parcelsight_tasks_enqueued_total",
			Help: "Total number of parcel analysis tasks enqueued",
		},
	)

	// TasksTotal counts parcel analysis tasks processed by workers
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelsight_tasks_total",
			Help: "Total number of parcel analysis tasks processed",
		},
		[]string{"status"}, // status: success, failed
	)

	// TasksRunning tracks the number of tasks currently being processed
	TasksRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parcelsight_tasks_running",
			Help: "Number of currently running tasks",
		},
		[]string{"worker"},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parcelsight_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordAnalysis records the outcome and duration of one analysis
func RecordAnalysis(stage, status string, duration float64) {
	AnalysesTotal.WithLabelValues(stage, status).Inc()
	AnalysisDuration.WithLabelValues(stage).Observe(duration)
}

// RecordFusedRows records the size of a fused table
func RecordFusedRows(table string, rows int) {
	FusedRows.WithLabelValues(table).Set(float64(rows))
}

// RecordRiskSkipped records a row the risk scorer skipped
func RecordRiskSkipped(reason string) {
	RiskSkippedRows.WithLabelValues(reason).Inc()
}

// RecordBatchRun records a finished batch run
func RecordBatchRun(trigger, status string, failures int) {
	BatchRunsTotal.WithLabelValues(trigger, status).Inc()
	BatchFailures.Set(float64(failures))
}

// RecordReportPublished records a results sink write
func RecordReportPublished(kind, status string) {
	ReportsPublished.WithLabelValues(kind, status).Inc()
}

// RecordTaskEnqueued records task enqueue
func RecordTaskEnqueued() {
	TasksEnqueued.Inc()
}

// RecordTaskStart records the start of a task
func RecordTaskStart(worker string) {
	TasksRunning.WithLabelValues(worker).Inc()
}

// RecordTaskComplete records task completion
func RecordTaskComplete(worker, status string) {
	TasksRunning.WithLabelValues(worker).Dec()
	TasksTotal.WithLabelValues(status).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
