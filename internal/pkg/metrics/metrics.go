package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tradetalent"

var (
	// ScoreUpdates 计分结果，result: ok / retried / failed / rejected
	ScoreUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engagement",
			Name:      "score_updates_total",
			Help:      "Engagement score updates by action and result",
		},
		[]string{"action", "result"},
	)

	FunnelTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engagement",
			Name:      "funnel_transitions_total",
			Help:      "Re-engagement funnel stages fired",
		},
		[]string{"stage"},
	)

	ArmedTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engagement",
			Name:      "deactivation_timers_armed",
			Help:      "Deactivation timers currently armed",
		},
	)

	// DecayUsers 衰减任务逐用户结果，result: charged / unchanged / skipped / failed
	DecayUsers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decay",
			Name:      "users_total",
			Help:      "Users processed by the decay batch",
		},
		[]string{"result"},
	)

	DecayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decay",
			Name:      "run_duration_seconds",
			Help:      "Duration of a decay batch run",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	ConsumedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "events_total",
			Help:      "Inbound engagement events by topic and result",
		},
		[]string{"topic", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
