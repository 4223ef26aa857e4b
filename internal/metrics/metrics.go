package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "canvas"

var (
	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Commands processed by the session actor.",
		},
		[]string{"command", "outcome"},
	)
	eventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "events_delivered_total",
			Help:      "Events queued on connection sinks.",
		},
		[]string{"event"},
	)
	evictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "slow_consumer_evictions_total",
			Help:      "Connections dropped because their event buffer was full.",
		},
	)
	connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "connections",
			Help:      "Connections currently joined to the session.",
		},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "frames_received_total",
			Help:      "Frames read from client sockets.",
		},
		[]string{"type", "accepted"},
	)
	framesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "frames_sent_total",
			Help:      "Text frames written to client sockets.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commandsTotal, eventsDelivered, evictions, connections, framesReceived, framesSent)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordCommand(command, outcome string) {
	RegisterMetrics()
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

// RecordEvent counts one event queued on n sinks.
func RecordEvent(event string, n int) {
	RegisterMetrics()
	if n <= 0 {
		return
	}
	eventsDelivered.WithLabelValues(event).Add(float64(n))
}

func RecordEviction() {
	RegisterMetrics()
	evictions.Inc()
}

func SetConnections(n int) {
	RegisterMetrics()
	connections.Set(float64(n))
}

func RecordFrameReceived(frameType string, accepted bool) {
	RegisterMetrics()
	framesReceived.WithLabelValues(frameType, strconv.FormatBool(accepted)).Inc()
}

func RecordFrameSent() {
	RegisterMetrics()
	framesSent.Inc()
}
