package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "cng_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	settlementLoadTotal *prometheus.CounterVec

	settlementCommitTotal   *prometheus.CounterVec
	settlementCommitLatency *prometheus.HistogramVec
	settlementWriteTotal    *prometheus.CounterVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	stationCacheTotal *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		settlementLoadTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_load_total",
				Help: "Total settlement period loads by source and result",
			},
			[]string{"source", "result"},
		)

		settlementCommitTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_commit_total",
				Help: "Total settlement period commits by result",
			},
			[]string{"result"},
		)
		settlementCommitLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_commit_latency_seconds",
				Help:    "Settlement period commit latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		settlementWriteTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_write_total",
				Help: "Total settlement record writes by operation and result",
			},
			[]string{"op", "result"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total settlement report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Settlement report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		stationCacheTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "station_cache_total",
				Help: "Station directory cache lookups by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			settlementLoadTotal,
			settlementCommitTotal,
			settlementCommitLatency,
			settlementWriteTotal,
			reportExportTotal,
			reportExportLatency,
			stationCacheTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// IncSettlementLoad counts a period load against a source ("prior", "existing", "stations").
func IncSettlementLoad(source, result string) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if settlementLoadTotal != nil {
		settlementLoadTotal.WithLabelValues(source, result).Inc()
	}
}

// ObserveSettlementCommit records commit latency and result.
func ObserveSettlementCommit(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if settlementCommitTotal != nil {
		settlementCommitTotal.WithLabelValues(result).Inc()
	}
	if settlementCommitLatency != nil {
		settlementCommitLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncSettlementWrite counts one insert or update.
func IncSettlementWrite(op, result string) {
	if op == "" {
		op = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if settlementWriteTotal != nil {
		settlementWriteTotal.WithLabelValues(op, result).Inc()
	}
}

// ObserveReportExport records export latency and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncStationCache counts a station cache hit, miss or error.
func IncStationCache(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if stationCacheTotal != nil {
		stationCacheTotal.WithLabelValues(outcome).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	WriteInsert = "insert"
	WriteUpdate = "update"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
