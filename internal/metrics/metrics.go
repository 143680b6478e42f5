package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Notifier
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_push_notifications_total",
			Help: "New-message events processed by the notifier, by outcome",
		},
		[]string{"outcome"},
	)

	PushTokensTargeted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_push_tokens_targeted_total",
			Help: "Device tokens addressed by multicast requests",
		},
	)

	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_push_deliveries_total",
			Help: "Per-token delivery results reported by the push service",
		},
		[]string{"result"}, // "success" or "failure"
	)

	HandlerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_push_handler_duration_seconds",
			Help:    "Time spent handling one new-message event",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// Chat API
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_push_messages_posted_total",
			Help: "Messages stored through the chat API",
		},
		[]string{"kind"}, // "text", "image" or "audio"
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_push_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)
