// Package metrics exposes the relay's prometheus instruments. A nil
// *Metrics is valid and records nothing, so wiring stays optional.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	activeConnections prometheus.Gauge
	eventsTotal       *prometheus.CounterVec
	framesDelivered   prometheus.Counter
	framesDropped     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		activeConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "active_connections",
			Help:      "Live WebSocket connections.",
		}),
		eventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "events_total",
			Help:      "Inbound events by type.",
		}, []string{"type"}),
		framesDelivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "frames_delivered_total",
			Help:      "Outbound frames enqueued to a recipient.",
		}),
		framesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped (backpressure or closed conn).",
		}),
	}
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) Event(typ string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(typ).Inc()
}

func (m *Metrics) Delivered() {
	if m == nil {
		return
	}
	m.framesDelivered.Inc()
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.framesDropped.Inc()
}
