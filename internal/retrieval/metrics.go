package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_retrieval_duration_seconds",
			Help:    "Vault retrieval latency by method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	isolationViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "router_isolation_violations_total",
			Help: "Index hits dropped because their tenant or user did not match the request.",
		},
	)

	rerankCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_rerank_calls_total",
			Help: "Re-ranker calls by status.",
		},
		[]string{"status"},
	)

	ingestChunks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "router_vault_ingested_chunks_total",
			Help: "Chunks written by vault ingest.",
		},
	)
)
