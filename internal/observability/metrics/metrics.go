package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "borsibaar_"

	// ResultSuccess and ResultError are the shared result label values.
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	stationOperationsTotal  *prometheus.CounterVec
	stationOperationLatency *prometheus.HistogramVec

	httpRequestsTotal *prometheus.CounterVec

	exportTotal *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		stationOperationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "station_operations_total",
				Help: "Total station service operations by operation and result",
			},
			[]string{"operation", "result"},
		)
		stationOperationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "station_operation_latency_seconds",
				Help:    "Station service operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)

		httpRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "station_export_total",
				Help: "Total station roster exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			stationOperationsTotal,
			stationOperationLatency,
			httpRequestsTotal,
			exportTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveStationOperation records a station service call.
func ObserveStationOperation(operation, result string, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if stationOperationsTotal != nil {
		stationOperationsTotal.WithLabelValues(operation, result).Inc()
	}
	if stationOperationLatency != nil {
		stationOperationLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// IncHTTPRequest counts a served HTTP request.
func IncHTTPRequest(method, status string) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, status).Inc()
	}
}

// IncExport counts a roster export.
func IncExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}
