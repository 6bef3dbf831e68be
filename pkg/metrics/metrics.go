package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records bearer token validations by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sosrelay_auth_attempts_total",
			Help: "Total number of bearer token validations",
		},
		[]string{"result"},
	)

	// FanoutAttempts counts per-contact delivery attempts by channel (email|sms) and result (sent|failed).
	FanoutAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sosrelay_fanout_attempts_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"channel", "result"},
	)

	// ProviderLatency measures outbound provider request latency.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sosrelay_provider_latency_seconds",
			Help:    "Latency of outbound email/SMS provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "outcome"},
	)

	// RecordWrites counts notification record persistence outcomes (written|error|dropped).
	RecordWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sosrelay_record_writes_total",
			Help: "Total number of notification record writes",
		},
		[]string{"result"},
	)

	// RecordQueueDepth tracks records waiting to be persisted.
	RecordQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sosrelay_record_queue_depth",
			Help: "Number of notification records waiting in the write queue",
		},
	)

	// AlertTransitions counts alert lifecycle transitions by target status.
	AlertTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sosrelay_alert_transitions_total",
			Help: "Total number of alert lifecycle transitions",
		},
		[]string{"status"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sosrelay_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
