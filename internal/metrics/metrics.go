package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OutcomesTotal counts terminal checkout outcomes by kind.
	OutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "outcomes_total",
		Help:      "Terminal checkout outcomes by kind.",
	}, []string{"kind"})

	// ReconcileDuration tracks the latency of the single order lookup
	// attempt during reconciliation.
	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "checkout",
		Name:      "reconcile_duration_seconds",
		Help:      "Duration of reconciliation order lookups.",
		Buckets:   prometheus.DefBuckets,
	})

	// SessionsStarted counts checkout sessions created.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "sessions_started_total",
		Help:      "Checkout sessions created.",
	})

	// RequestsTotal counts HTTP requests by method, path and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})
)
