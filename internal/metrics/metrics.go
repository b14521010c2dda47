// Package metrics holds the Prometheus collectors of the flow engine and its
// session host. They register with the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FlushTotal counts batch queue flushes per collection.
	FlushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_flush_total",
			Help: "Total number of batched node or edge flushes",
		},
		[]string{"collection"},
	)

	// ChangeTotal counts emitted change records.
	ChangeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_change_total",
			Help: "Total number of node and edge change records emitted",
		},
		[]string{"collection", "type"},
	)

	// GestureAbortedTotal counts drags and resizes given up mid-gesture.
	GestureAbortedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_gesture_aborted_total",
			Help: "Total number of aborted drag and resize gestures",
		},
		[]string{"gesture", "reason"},
	)

	// ActiveSessions tracks connected websocket clients per flow.
	ActiveSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flow_active_sessions",
			Help: "Currently connected session clients",
		},
		[]string{"flow_id"},
	)

	// MessageTotal counts session messages by direction and type.
	MessageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_session_message_total",
			Help: "Total number of session messages",
		},
		[]string{"direction", "type"},
	)
)

func init() {
	prometheus.MustRegister(FlushTotal)
	prometheus.MustRegister(ChangeTotal)
	prometheus.MustRegister(GestureAbortedTotal)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(MessageTotal)
}
