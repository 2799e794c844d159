package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// initIngestMetrics initializes document ingestion metrics.
func (m *Manager) initIngestMetrics(cfg Config) {
	m.ingestDocuments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_documents_total",
			Help: "Total number of documents ingested",
		},
	)

	m.ingestTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_tokens_total",
			Help: "Total number of tokens processed",
		},
	)

	m.ingestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Document ingestion duration in seconds",
			Buckets: cfg.IngestDurationBuckets,
		},
	)

	m.registry.MustRegister(m.ingestDocuments)
	m.registry.MustRegister(m.ingestTokens)
	m.registry.MustRegister(m.ingestDuration)
}

// RecordDocument records one ingested document.
func (m *Manager) RecordDocument(tokens int, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.ingestDocuments.Inc()
	m.ingestTokens.Add(float64(tokens))
	m.ingestDuration.Observe(duration.Seconds())
}
