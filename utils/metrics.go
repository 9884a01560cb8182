package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "courier"

var (
	MetricSessionCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "session",
		Name:      "cache_lookups_total",
		Help:      "Credential cache lookups by result (hit, stale, miss)",
	}, []string{"result"})

	MetricSessionAuthentications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "session",
		Name:      "authentications_total",
		Help:      "Authentications against the courier platform by outcome",
	}, []string{"outcome"})

	MetricSessionAuthenticationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "session",
		Name:      "authentication_duration_seconds",
		Help:      "Duration of the authentication exchange with the courier platform",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	MetricSessionCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "session",
		Name:      "cache_evictions_total",
		Help:      "Stale session tokens removed from the credential cache",
	})

	MetricSessionCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "session",
		Name:      "cache_entries",
		Help:      "Session tokens currently held by the credential cache",
	})

	MetricUpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Requests sent to the courier platform by endpoint and status class",
	}, []string{"endpoint", "status"})
)
