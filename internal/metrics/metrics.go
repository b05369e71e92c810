// Package metrics exposes Prometheus metrics for the proxy's own operation:
// package-level vectors registered through promauto, namespaced, labelled by
// backend where it matters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "l4lb"

var (
	// ConnectionsTotal counts forwarding sessions by terminal result.
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total client connections handled, by outcome",
		},
		[]string{"result"},
	)

	// ActiveConnections tracks in-flight forwarding sessions.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of client connections currently being forwarded",
		},
	)

	// BackendHealthy is set per backend (1=healthy, 0=unhealthy) each time
	// the passive monitor flips that backend's Health. A backend that has
	// never changed state has no series.
	BackendHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_healthy",
			Help:      "Current health of a backend: 1 healthy, 0 unhealthy",
		},
		[]string{"backend"},
	)

	// BackendSelectedTotal counts how many times the selector returned a
	// given backend.
	BackendSelectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_selected_total",
			Help:      "Total selections per backend",
		},
		[]string{"backend"},
	)

	// BackendConnectDuration measures dial latency per backend.
	BackendConnectDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_connect_duration_seconds",
			Help:      "Backend dial duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"backend"},
	)

	// ForwardBytesTotal counts bytes forwarded per backend and direction.
	ForwardBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_bytes_total",
			Help:      "Total bytes forwarded, by backend and direction",
		},
		[]string{"backend", "direction"},
	)
)

// SetBackendHealth records the current health of a backend for the gauge.
func SetBackendHealth(backend string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	BackendHealthy.WithLabelValues(backend).Set(v)
}
