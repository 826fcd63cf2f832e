package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection Metrics
var (
	// ConnectedClients tracks open WebSocket connections. It moves only by Inc on
	// accept and Dec on cleanup.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickcast_connected_clients",
			Help: "Number of WebSocket client connections currently open",
		},
	)

	// ConnectionsTotal tracks connection attempts by result (accepted, rejected, upgrade_failed)
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickcast_connections_total",
			Help: "WebSocket connection attempts by result",
		},
		[]string{"result"},
	)
)

// Scheduler Metrics
var (
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickcast_ticks_total",
			Help: "Total broadcast ticks executed",
		},
	)

	// TickErrorsTotal tracks ticks that failed before or outside delivery (message, panic)
	TickErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickcast_tick_errors_total",
			Help: "Broadcast ticks that ended with an error, by kind",
		},
		[]string{"kind"},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tickcast_tick_duration_seconds",
			Help:    "Time spent delivering one tick to all clients",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// SlowTicksTotal counts ticks that took longer than the tick period
	SlowTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickcast_slow_ticks_total",
			Help: "Broadcast ticks that outlived the tick period",
		},
	)

	// DeliveriesTotal tracks per-client delivery attempts by result (success, failure)
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickcast_deliveries_total",
			Help: "Per-client delivery attempts by result",
		},
		[]string{"result"},
	)

	EvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickcast_evictions_total",
			Help: "Clients removed from the registry after a failed delivery",
		},
	)
)
