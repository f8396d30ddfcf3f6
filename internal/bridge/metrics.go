package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metrics counts bridge traffic. A nil *Metrics records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	events      *prometheus.CounterVec
	connections prometheus.Gauge
}

// NewMetrics registers the bridge metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notification_bridge",
			Name:      "requests_total",
			Help:      "Bridge requests handled, by request type and outcome.",
		}, []string{"type", "outcome"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notification_bridge",
			Name:      "events_total",
			Help:      "Unsolicited messages sent to embedded content, by type.",
		}, []string{"type"}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "notification_bridge",
			Name:      "connections",
			Help:      "Open content connections.",
		}),
	}
}

func (m *Metrics) request(typ RequestType, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(requestLabel(typ), outcome).Inc()
}

func (m *Metrics) event(typ ResponseType) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(typ)).Inc()
}

// ConnectionOpened increments the open connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed decrements the open connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// requestLabel keeps label cardinality bounded: content controls the type string.
func requestLabel(typ RequestType) string {
	switch typ {
	case RequestPushToken, RequestSendPushViaBackend, RequestSendLocalNotification:
		return string(typ)
	case "":
		return "unparsed"
	default:
		return "unknown"
	}
}
