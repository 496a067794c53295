package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agritess_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agritess_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline metrics
	snapshotRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agritess_snapshot_requests_total",
			Help: "Total number of pipeline snapshot pulls",
		},
		[]string{"status"},
	)

	exportRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agritess_export_requests_total",
			Help: "Total number of export requests",
		},
		[]string{"format", "status"},
	)

	editRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agritess_edit_requests_total",
			Help: "Total number of point edit requests",
		},
		[]string{"op", "status"},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agritess_websocket_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agritess_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"},
	)
)
