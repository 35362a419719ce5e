package lan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrupa los contadores Prometheus del beacon.
// Un *Metrics nil es válido y no hace nada.
type Metrics struct {
	received  *prometheus.CounterVec
	accepted  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	broadcast prometheus.Counter
	sendFails prometheus.Counter
	timeouts  prometheus.Counter
}

// NewMetrics registra los contadores en reg (por defecto
// prometheus.DefaultRegisterer si reg es nil).
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "lanbeacon"
	}
	factory := promauto.With(reg)

	return &Metrics{
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_received_total",
			Help:      "Datagrams read from the beacon socket",
		}, []string{"state"}),
		accepted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_accepted_total",
			Help:      "Datagrams that passed header validation",
		}, []string{"kind"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_rejected_total",
			Help:      "Datagrams silently dropped by header validation",
		}, []string{"kind"}),
		broadcast: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_broadcast_total",
			Help:      "Packets sent to the broadcast address",
		}),
		sendFails: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_failures_total",
			Help:      "Broadcasts that failed or were short",
		}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_timeouts_total",
			Help:      "Searches that reached their query timeout",
		}),
	}
}

func (m *Metrics) datagram(state State) {
	if m != nil {
		m.received.WithLabelValues(state.String()).Inc()
	}
}

func (m *Metrics) validated(kind string, ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.accepted.WithLabelValues(kind).Inc()
	} else {
		m.rejected.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) sent(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.broadcast.Inc()
	} else {
		m.sendFails.Inc()
	}
}

func (m *Metrics) timeout() {
	if m != nil {
		m.timeouts.Inc()
	}
}
