package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_chat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "support_chat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_chat",
			Subsystem: "chat",
			Name:      "messages_sent_total",
			Help:      "Messages stored, by sender type",
		},
		[]string{"sender"},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "support_chat",
			Subsystem: "realtime",
			Name:      "active_connections",
			Help:      "Open realtime connections",
		},
	)

	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_chat",
			Subsystem: "realtime",
			Name:      "events_delivered_total",
			Help:      "Events queued to a connection",
		},
		[]string{"event"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_chat",
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Events not delivered, by reason",
		},
		[]string{"event", "reason"},
	)
)

func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

func RecordMessage(sender string) {
	MessagesSent.WithLabelValues(sender).Inc()
}

func RecordDelivered(event string) {
	EventsDelivered.WithLabelValues(event).Inc()
}

// RecordDropped counts an undelivered event; reason is "buffer_full" or "encode".
func RecordDropped(event, reason string) {
	EventsDropped.WithLabelValues(event, reason).Inc()
}
