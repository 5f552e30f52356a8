package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkt_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zkt_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Room metrics
	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zkt_rooms_created_total",
			Help: "Total friendly rooms created",
		},
	)

	RoomsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkt_rooms_deleted_total",
			Help: "Total friendly rooms deleted",
		},
		[]string{"reason"}, // "empty" or "deleted"
	)

	RoundsAdvanced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkt_rounds_advanced_total",
			Help: "Total round advances",
		},
		[]string{"trigger"}, // "manual" or "auto"
	)

	ResultsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "zkt_results_submitted_total",
			Help: "Total results submitted",
		},
	)

	// Grace period metrics
	GracePeriods = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkt_grace_periods_total",
			Help: "Grace period transitions",
		},
		[]string{"event"}, // "started", "cancelled" or "expired"
	)

	// Connection metrics
	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "zkt_websocket_connections",
			Help: "Open websocket connections",
		},
	)

	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkt_relay_messages_total",
			Help: "Messages passed through the Redis relay",
		},
		[]string{"direction"}, // "out" or "in"
	)
)
