package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_request_latency_seconds",
			Help:    "End-to-end routed request latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tenant", "route"},
	)

	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_requests_total",
			Help: "Routed requests by tenant, route and refusal.",
		},
		[]string{"tenant", "route", "refused"},
	)

	refusalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_refusals_total",
			Help: "Refusals by tenant and code.",
		},
		[]string{"tenant", "code"},
	)

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_tool_calls_total",
			Help: "Tool-call log entries by tool and status.",
		},
		[]string{"tool", "status"},
	)

	citationsPerRequest = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "router_citations_per_request",
			Help:    "Citations attached to each answer.",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 8, 12},
		},
	)

	tokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_llm_tokens_total",
			Help: "LLM tokens by tenant and kind.",
		},
		[]string{"tenant", "kind"},
	)

	costTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_llm_cost_usd_total",
			Help: "Estimated LLM spend in USD by tenant.",
		},
		[]string{"tenant"},
	)
)
