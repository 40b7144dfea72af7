package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the lobby's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Connections  prometheus.Gauge
	Rooms        prometheus.Gauge
	Requests     *prometheus.CounterVec
	DroppedSends prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lobby",
			Name:      "connections",
			Help:      "Live WebSocket connections.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lobby",
			Name:      "rooms",
			Help:      "Rooms currently open.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lobby",
			Name:      "requests_total",
			Help:      "Inbound requests by message type and outcome.",
		}, []string{"type", "result"}),
		DroppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lobby",
			Name:      "dropped_sends_total",
			Help:      "Outbound messages dropped because the connection was gone or its queue was full.",
		}),
	}
	m.registry.MustRegister(m.Connections, m.Rooms, m.Requests, m.DroppedSends)
	m.registry.MustRegister(collectors.NewGoCollector())
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.Connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.Connections.Dec()
	}
}

func (m *Metrics) RoomOpened() {
	if m != nil {
		m.Rooms.Inc()
	}
}

func (m *Metrics) RoomClosed() {
	if m != nil {
		m.Rooms.Dec()
	}
}

func (m *Metrics) Request(msgType, result string) {
	if m != nil {
		m.Requests.WithLabelValues(msgType, result).Inc()
	}
}

func (m *Metrics) SendDropped() {
	if m != nil {
		m.DroppedSends.Inc()
	}
}
