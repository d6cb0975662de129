package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodesk_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ChannelDeliveries counts notification channel sends by channel (email|push|inapp) and result (sent|failed|skipped).
	ChannelDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodesk_channel_deliveries_total",
			Help: "Total number of notification channel deliveries",
		},
		[]string{"channel", "result"},
	)

	// ReminderDispatches counts reminder dispatch outcomes (sent|failed).
	ReminderDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodesk_reminder_dispatches_total",
			Help: "Total number of reminder dispatch attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "custodesk_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
