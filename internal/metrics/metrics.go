package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are created eagerly so instrumented packages can use them
// without caring whether Register has run; registration happens once at
// startup.
var (
	ProxyForwards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_proxy_forwards_total",
			Help: "Proxied backend requests, by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	PollResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_generation_polls_total",
			Help: "Generation status polls, by result.",
		},
		[]string{"result"},
	)

	GenerationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_generations_total",
			Help: "Tracked generations reaching a terminal state, by outcome.",
		},
		[]string{"outcome"},
	)

	FeedBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_feed_build_duration_seconds",
			Help:    "Time spent assembling one ranked feed page.",
			Buckets: prometheus.DefBuckets,
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

// Register installs all gateway collectors on the default registry.
// Call once at startup.
func Register() {
	prometheus.MustRegister(
		ProxyForwards,
		PollResults,
		GenerationOutcomes,
		FeedBuildDuration,
		RequestDuration,
	)
}
