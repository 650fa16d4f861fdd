package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "brctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	protocolMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brctl",
			Subsystem: "protocol",
			Name:      "messages_total",
			Help:      "Protocol records by direction and message type.",
		},
		[]string{"node", "direction", "message"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brctl",
			Subsystem: "protocol",
			Name:      "decode_errors_total",
			Help:      "Datagrams dropped because they did not decode.",
		},
		[]string{"node"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brctl",
			Subsystem: "carriage",
			Name:      "state_transitions_total",
			Help:      "Carriage state assignments by target state.",
		},
		[]string{"node", "state"},
	)
	actuatorAcks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "brctl",
			Subsystem: "actuator",
			Name:      "acks_total",
			Help:      "Actuator acknowledgment waits by result.",
		},
		[]string{"node", "result"},
	)
	actuatorAckWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "brctl",
			Subsystem: "actuator",
			Name:      "ack_wait_seconds",
			Help:      "Time spent waiting for actuator acknowledgment.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"node", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			protocolMessages,
			decodeErrors,
			stateTransitions,
			actuatorAcks,
			actuatorAckWait,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordMessage(node, direction, message string) {
	RegisterMetrics()
	protocolMessages.WithLabelValues(node, direction, message).Inc()
}

func RecordDecodeError(node string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(node).Inc()
}

func RecordTransition(node, state string) {
	RegisterMetrics()
	stateTransitions.WithLabelValues(node, state).Inc()
}

func RecordActuatorAck(node, result string, waited time.Duration) {
	RegisterMetrics()
	actuatorAcks.WithLabelValues(node, result).Inc()
	actuatorAckWait.WithLabelValues(node, result).Observe(waited.Seconds())
}
