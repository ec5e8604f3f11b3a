package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chord_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chord_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Signaling metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chord_ws_connections",
			Help: "Open signaling connections",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chord_events_published_total",
			Help: "Events published to subscribers, by kind",
		},
		[]string{"kind"},
	)

	EmitsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chord_emits_rejected_total",
			Help: "Client emits refused by the hub",
		},
		[]string{"reason"},
	)

	SlowClientsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chord_slow_clients_dropped_total",
			Help: "Connections closed because their send buffer filled up",
		},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chord_messages_sent_total",
			Help: "Messages created",
		},
		[]string{"chat"}, // "channel" or "conversation"
	)

	CallsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chord_calls_started_total",
			Help: "Calls created",
		},
		[]string{"type"},
	)

	CallConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chord_call_conflicts_total",
			Help: "Call creates refused because a call was already open",
		},
	)
)
