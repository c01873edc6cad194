// Package metrics exposes the dashboard's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stakeview",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Upstream balance requests by result",
	}, []string{"result"})

	UpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stakeview",
		Subsystem: "upstream",
		Name:      "duration_seconds",
		Help:      "Upstream balance request duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	UpstreamRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stakeview",
		Subsystem: "upstream",
		Name:      "rate_limit_waits_total",
		Help:      "Upstream requests delayed by the client rate limiter",
	})

	// FetchesDiscarded counts responses dropped because a newer fetch was issued.
	FetchesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stakeview",
		Subsystem: "dashboard",
		Name:      "fetch_discarded_total",
		Help:      "Fetch results dropped in favour of a newer request",
	})

	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stakeview",
		Subsystem: "export",
		Name:      "sessions_total",
		Help:      "Export session transitions by outcome",
	}, []string{"outcome"})

	ViewsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stakeview",
		Subsystem: "dashboard",
		Name:      "views_active",
		Help:      "Dashboard views currently held in memory",
	})
)

// Export outcomes.
const (
	ExportRequested = "requested"
	ExportCompleted = "completed"
	ExportCancelled = "cancelled"
	ExportIgnored   = "ignored"
)
