package panel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts protocol traffic and readiness transitions. A nil
// *Metrics records nothing.
type Metrics struct {
	messages    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	deliveries  *prometheus.HistogramVec
	live        prometheus.Gauge
}

// NewMetrics registers the panel metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// messages counts protocol messages by direction and command
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphpanel_messages_total",
			Help: "Protocol messages by direction and command",
		}, []string{"direction", "command"}),

		// transitions counts readiness state changes
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphpanel_state_transitions_total",
			Help: "Panel readiness transitions",
		}, []string{"from", "to"}),

		// deliveries tracks how long InitialiseGraph waited for the surface
		deliveries: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "graphpanel_delivery_wait_seconds",
			Help:    "Time from InitialiseGraph to delivery into the surface",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
		}, []string{"result"}),

		live: f.NewGauge(prometheus.GaugeOpts{
			Name: "graphpanel_live_panels",
			Help: "Panels created and not yet disposed",
		}),
	}
}

func (m *Metrics) message(direction, command string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(direction, command).Inc()
}

func (m *Metrics) transition(from, to State) {
	if m == nil || from == to {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) delivered(result string, seconds float64) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Observe(seconds)
}

func (m *Metrics) opened() {
	if m != nil {
		m.live.Inc()
	}
}

func (m *Metrics) closed() {
	if m != nil {
		m.live.Dec()
	}
}
