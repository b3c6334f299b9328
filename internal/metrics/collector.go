// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package ldpmetrics

import (
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nttcom/goldp/pkg/packet/ldp"
)

const (
	namespace = "goldp"
	subsystem = "ldp"
)

// Label names shared by the LDP metrics.
const (
	labelNeighbor    = "neighbor"
	labelMessageType = "type"
	labelStatusCode  = "code"
)

// Collector holds the per-neighbor LDP session metrics: message counters per
// label message type, PDU counters, and notification/shutdown counters keyed
// by status code.
type Collector struct {
	MessagesSent      *prometheus.CounterVec
	MessagesReceived  *prometheus.CounterVec
	PDUsSent          *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
	SessionShutdowns  *prometheus.CounterVec
}

// NewCollector creates a Collector registered against reg. If reg is nil,
// prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	messageLabels := []string{labelNeighbor, labelMessageType}
	statusLabels := []string{labelNeighbor, labelStatusCode}

	c := &Collector{
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Total label messages sent, per message type.",
		}, messageLabels),

		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Total label messages received, per message type.",
		}, messageLabels),

		PDUsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pdus_sent_total",
			Help:      "Total PDUs handed to the transport.",
		}, []string{labelNeighbor}),

		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Total Notification messages sent, per status code.",
		}, statusLabels),

		SessionShutdowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_shutdowns_total",
			Help:      "Total sessions shut down for protocol errors, per status code.",
		}, statusLabels),
	}

	reg.MustRegister(
		c.MessagesSent,
		c.MessagesReceived,
		c.PDUsSent,
		c.NotificationsSent,
		c.SessionShutdowns,
	)

	return c
}

// IncMessageSent counts one sent label message.
func (c *Collector) IncMessageSent(neighbor netip.Addr, msgType ldp.MessageType) {
	c.MessagesSent.WithLabelValues(neighbor.String(), msgType.String()).Inc()
}

// IncMessageReceived counts one received label message.
func (c *Collector) IncMessageReceived(neighbor netip.Addr, msgType ldp.MessageType) {
	c.MessagesReceived.WithLabelValues(neighbor.String(), msgType.String()).Inc()
}

// IncPDUSent counts one finalized PDU handed to the transport.
func (c *Collector) IncPDUSent(neighbor netip.Addr) {
	c.PDUsSent.WithLabelValues(neighbor.String()).Inc()
}

// IncNotificationSent counts one Notification sent to the neighbor.
func (c *Collector) IncNotificationSent(neighbor netip.Addr, code ldp.StatusCode) {
	c.NotificationsSent.WithLabelValues(neighbor.String(), code.String()).Inc()
}

// IncSessionShutdown counts one protocol-error session shutdown.
func (c *Collector) IncSessionShutdown(neighbor netip.Addr, code ldp.StatusCode) {
	c.SessionShutdowns.WithLabelValues(neighbor.String(), code.String()).Inc()
}
