// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SessionsStartedTotal tracks total sessions started.
	SessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_sessions_started_total",
			Help: "Total chat sessions started",
		},
	)

	// SessionSwitchesTotal tracks session switches by outcome (fetched or cached).
	SessionSwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_session_switches_total",
			Help: "Total session switches",
		},
		[]string{"outcome"},
	)

	// MessagesTotal tracks messages appended to sessions by sender.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total messages appended to sessions",
		},
		[]string{"sender"},
	)

	// BackendRequestDuration tracks chat backend call duration.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_backend_request_duration_seconds",
			Help:    "Chat backend request duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"backend", "operation", "status"},
	)

	// ConversationsTracked tracks the current size of the conversation registry.
	ConversationsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_conversations_tracked",
			Help: "Conversations currently held in the registry",
		},
	)

	// RegistryWritesTotal tracks registry persistence writes by status.
	RegistryWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_registry_writes_total",
			Help: "Total conversation registry persistence writes",
		},
		[]string{"status"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordBackendRequest records metrics for a chat backend call.
func RecordBackendRequest(backend, operation, status string, duration float64) {
	BackendRequestDuration.WithLabelValues(backend, operation, status).Observe(duration)
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
