// Package metrics exposes prometheus instrumentation for the messaging
// core. All recording methods are nil-safe so callers can run without
// metrics wired.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Send outcome labels. "ok" plus one label per client failure stage.
const (
	OutcomeOK           = "ok"
	OutcomeResolution   = "resolution"
	OutcomeEncryption   = "encryption"
	OutcomeConnection   = "connection"
	OutcomeTransmission = "transmission"
)

type PeerMetrics struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected prometheus.Counter
	MessagesDelivered   prometheus.Counter
	DecryptFailures     prometheus.Counter
	ProtocolFailures    prometheus.Counter
	Sends               *prometheus.CounterVec
}

// New registers the peer metrics on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *PeerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PeerMetrics{
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aegis_peer_connections_accepted_total",
			Help: "Inbound connections accepted by the message server.",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aegis_peer_connections_rejected_total",
			Help: "Inbound connections rejected by admission control.",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aegis_peer_messages_delivered_total",
			Help: "Plaintexts delivered to the configured handler.",
		}),
		DecryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aegis_peer_decrypt_failures_total",
			Help: "Inbound envelopes that failed decryption.",
		}),
		ProtocolFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aegis_peer_protocol_failures_total",
			Help: "Inbound connections that violated the framing contract.",
		}),
		Sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_peer_sends_total",
			Help: "Client send attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.ConnectionsAccepted,
		m.ConnectionsRejected,
		m.MessagesDelivered,
		m.DecryptFailures,
		m.ProtocolFailures,
		m.Sends,
	)
	return m
}

func (m *PeerMetrics) RecordAccepted() {
	if m != nil {
		m.ConnectionsAccepted.Inc()
	}
}

func (m *PeerMetrics) RecordRejected() {
	if m != nil {
		m.ConnectionsRejected.Inc()
	}
}

func (m *PeerMetrics) RecordDelivered() {
	if m != nil {
		m.MessagesDelivered.Inc()
	}
}

func (m *PeerMetrics) RecordDecryptFailure() {
	if m != nil {
		m.DecryptFailures.Inc()
	}
}

func (m *PeerMetrics) RecordProtocolFailure() {
	if m != nil {
		m.ProtocolFailures.Inc()
	}
}

func (m *PeerMetrics) RecordSend(outcome string) {
	if m != nil {
		m.Sends.WithLabelValues(outcome).Inc()
	}
}
