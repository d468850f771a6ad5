package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for ingestion and the HTTP API.
type Metrics struct {
	FilesProcessed prometheus.Counter
	FilesSkipped   prometheus.Counter
	RowsInserted   prometheus.Counter
	RowsRejected   *prometheus.CounterVec // labels: reason={whitelist,time,short_row,missing_field}
	IngestRunning  prometheus.Gauge

	FileDuration prometheus.Histogram

	// HTTP request metrics.
	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: method, route
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesProcessed,
		m.FilesSkipped,
		m.RowsInserted,
		m.RowsRejected,
		m.IngestRunning,
		m.FileDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocean_ranch",
			Name:      "ingest_files_processed_total",
			Help:      "Source files whose rows reached the store.",
		}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocean_ranch",
			Name:      "ingest_files_skipped_total",
			Help:      "Source files skipped as unreadable, empty, or missing grouping columns.",
		}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocean_ranch",
			Name:      "ingest_rows_inserted_total",
			Help:      "Water-quality rows written to the store.",
		}),
		RowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocean_ranch",
			Name:      "ingest_rows_rejected_total",
			Help:      "Rows excluded during ingestion by reason.",
		}, []string{"reason"}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ocean_ranch",
			Name:      "ingest_running",
			Help:      "1 while an ingestion run is active.",
		}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ocean_ranch",
			Name:      "ingest_file_duration_seconds",
			Help:      "Duration of reading, normalizing and writing one source file.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocean_ranch",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ocean_ranch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}
