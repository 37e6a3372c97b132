// Package metrics implements the hub and bridge observers on top of
// prometheus, so the swallowed-error paths stay visible as counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type HubMetrics struct {
	clients       prometheus.Gauge
	writeFailures prometheus.Counter
}

func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "whitelist_sse_clients",
			Help: "Connected SSE client registrations on this instance.",
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whitelist_sse_write_failures_total",
			Help: "Stream writes that failed and dropped the client.",
		}),
	}
	reg.MustRegister(m.clients, m.writeFailures)
	return m
}

func (m *HubMetrics) ClientRegistered()   { m.clients.Inc() }
func (m *HubMetrics) ClientUnregistered() { m.clients.Dec() }
func (m *HubMetrics) StreamWriteFailed()  { m.writeFailures.Inc() }

type BridgeMetrics struct {
	selfEcho       prometheus.Counter
	malformed      prometheus.Counter
	notifyFailures prometheus.Counter
}

func NewBridgeMetrics(reg prometheus.Registerer) *BridgeMetrics {
	m := &BridgeMetrics{
		selfEcho: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whitelist_relay_self_echo_suppressed_total",
			Help: "Inbound relay events discarded because this instance produced them.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whitelist_relay_malformed_payloads_total",
			Help: "Inbound relay payloads discarded as malformed or unknown.",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whitelist_relay_notify_failures_total",
			Help: "Outbound relay notifications that failed to broadcast.",
		}),
	}
	reg.MustRegister(m.selfEcho, m.malformed, m.notifyFailures)
	return m
}

func (m *BridgeMetrics) SelfEchoSuppressed() { m.selfEcho.Inc() }
func (m *BridgeMetrics) MalformedPayload()   { m.malformed.Inc() }
func (m *BridgeMetrics) NotifyFailed()       { m.notifyFailures.Inc() }
