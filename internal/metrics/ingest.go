package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion Prometheus metrics.
var (
	IngestJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "querydocs",
			Name:      "ingest_jobs_total",
			Help:      "Total ingestion jobs by terminal status",
		},
		[]string{"status"}, // "succeeded" / "failed" / "retried"
	)

	IngestJobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "querydocs",
			Name:      "ingest_job_duration_seconds",
			Help:      "End-to-end ingestion job duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	IngestChunksIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "querydocs",
			Name:      "ingest_chunks_indexed_total",
			Help:      "Total chunks upserted into the vector index",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "querydocs",
			Name:      "queue_depth",
			Help:      "Entries currently in the ingestion stream",
		},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers Prometheus ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestJobsTotal)
	prometheus.MustRegister(IngestJobDuration)
	prometheus.MustRegister(IngestChunksIndexed)
	prometheus.MustRegister(QueueDepth)
	ingestMetricsRegistered = true
}
