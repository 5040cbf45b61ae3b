package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts reads served from the TTL cache, by key scope.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsedash_cache_hits_total",
		Help: "Cache reads answered without recomputation.",
	}, []string{"scope"})

	// CacheMisses counts reads that fell through to a recomputation.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsedash_cache_misses_total",
		Help: "Cache reads that triggered the underlying fetch.",
	}, []string{"scope"})

	// FetchShared counts callers that attached to an already in-flight fetch
	// instead of starting their own.
	FetchShared = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsedash_fetch_shared_total",
		Help: "Callers deduplicated onto an in-flight fetch.",
	}, []string{"scope"})

	// CollaboratorRequests counts outbound calls to external services.
	CollaboratorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsedash_collaborator_requests_total",
		Help: "Outbound collaborator calls by service and outcome.",
	}, []string{"collaborator", "outcome"})

	// BreakerState tracks circuit breaker state per collaborator
	// (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pulsedash_breaker_state",
		Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
	}, []string{"collaborator"})

	// HTTPDuration observes handler latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pulsedash_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status class.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)
