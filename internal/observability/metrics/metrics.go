package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "platform_"

	resultSuccess    = "success"
	resultError      = "error"
	resultStructural = "structural"
	resultDryRun     = "dry_run"
	resultNoHistory  = "no_history"
)

var (
	registerOnce sync.Once

	ingestRequests     *prometheus.CounterVec
	ingestLatency      *prometheus.HistogramVec
	ingestStructural   *prometheus.CounterVec
	ingestWarnings     *prometheus.CounterVec
	ingestUnitsByState *prometheus.CounterVec

	forecastRuns      *prometheus.CounterVec
	forecastLatency   *prometheus.HistogramVec
	forecastFallbacks *prometheus.CounterVec
	forecastRecords   *prometheus.CounterVec

	forecastExportTotal   *prometheus.CounterVec
	forecastExportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_ingest_total",
				Help: "Total report uploads by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_ingest_latency_seconds",
				Help:    "Report parse and store latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		ingestStructural = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_structural_failures_total",
				Help: "Rejected workbooks by missing artifact",
			},
			[]string{"artifact"},
		)
		ingestWarnings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_warnings_total",
				Help: "Data quality warnings attached to parsed reports by code",
			},
			[]string{"code"},
		)
		ingestUnitsByState = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_units_total",
				Help: "Parsed generating units by derived status",
			},
			[]string{"status"},
		)

		forecastRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "forecast_runs_total",
				Help: "Total forecast runs by trigger and result",
			},
			[]string{"trigger", "result"},
		)
		forecastLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "forecast_latency_seconds",
				Help:    "Forecast run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger", "result"},
		)
		forecastFallbacks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "forecast_fallback_total",
				Help: "Forecast series served by the fallback extrapolation, by reason",
			},
			[]string{"reason"},
		)
		forecastRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "forecast_records_total",
				Help: "Forecast records produced by kind",
			},
			[]string{"kind"},
		)

		forecastExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "forecast_export_total",
				Help: "Total forecast export operations by format and result",
			},
			[]string{"format", "result"},
		)
		forecastExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "forecast_export_latency_seconds",
				Help:    "Forecast export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestLatency,
			ingestStructural,
			ingestWarnings,
			ingestUnitsByState,
			forecastRuns,
			forecastLatency,
			forecastFallbacks,
			forecastRecords,
			forecastExportTotal,
			forecastExportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records upload latency and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncStructuralFailure counts a workbook rejected for a missing sheet or row.
func IncStructuralFailure(artifact string) {
	if artifact == "" {
		artifact = "unknown"
	}
	if ingestStructural != nil {
		ingestStructural.WithLabelValues(artifact).Inc()
	}
}

// IncReportWarning counts one data quality warning.
func IncReportWarning(code string) {
	if code == "" {
		code = "unknown"
	}
	if ingestWarnings != nil {
		ingestWarnings.WithLabelValues(code).Inc()
	}
}

// AddUnits counts parsed units of one status.
func AddUnits(status string, count int) {
	if count <= 0 {
		return
	}
	if ingestUnitsByState != nil {
		ingestUnitsByState.WithLabelValues(status).Add(float64(count))
	}
}

// ObserveForecast records a forecast run.
func ObserveForecast(trigger, result string, duration time.Duration) {
	if trigger == "" {
		trigger = "api"
	}
	if result == "" {
		result = resultSuccess
	}
	if forecastRuns != nil {
		forecastRuns.WithLabelValues(trigger, result).Inc()
	}
	if forecastLatency != nil {
		forecastLatency.WithLabelValues(trigger, result).Observe(duration.Seconds())
	}
}

// IncForecastFallback counts a series served in fallback mode.
func IncForecastFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if forecastFallbacks != nil {
		forecastFallbacks.WithLabelValues(reason).Inc()
	}
}

// AddForecastRecords counts produced records of one kind.
func AddForecastRecords(kind string, count int) {
	if count <= 0 {
		return
	}
	if forecastRecords != nil {
		forecastRecords.WithLabelValues(kind).Add(float64(count))
	}
}

// ObserveForecastExport records export latency and result.
func ObserveForecastExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if forecastExportTotal != nil {
		forecastExportTotal.WithLabelValues(format, result).Inc()
	}
	if forecastExportLatency != nil {
		forecastExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess    = resultSuccess
	ResultError      = resultError
	ResultStructural = resultStructural
	ResultDryRun     = resultDryRun
	ResultNoHistory  = resultNoHistory
)
