// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package server

import (
	"fmt"
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	ldpmetrics "github.com/nttcom/goldp/internal/metrics"
	"github.com/nttcom/goldp/pkg/packet/ldp"
)

// Event is a protocol event signaled to the neighbor state machine.
type Event uint8

const (
	// EventPDUSent fires after a batch of messages is flushed to the transport.
	EventPDUSent Event = iota
	// EventPDUReceived fires after a PDU passes header validation; the state
	// machine uses it to rearm the keepalive timeout.
	EventPDUReceived
)

func (e Event) String() string {
	switch e {
	case EventPDUSent:
		return "pdu sent"
	case EventPDUReceived:
		return "pdu received"
	}
	return fmt.Sprintf("Unknown Event (%d)", uint8(e))
}

// Transport hands finalized PDUs to the socket writer for reliable in-order
// delivery.
type Transport interface {
	Enqueue(pdu []byte)
}

// SessionState is the neighbor finite state machine. Shutdown sends a fatal
// notification referencing the offending message and tears the session down.
type SessionState interface {
	Signal(ev Event)
	Shutdown(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType)
}

// Notifier reports non-fatal protocol errors to the peer; the session
// stays up.
type Notifier interface {
	Notify(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType)
	NotifyReturnTLV(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType, tlv ldp.UnknownTLV)
}

// MapKind tells the label decision engine what a forwarded entry means.
type MapKind uint8

const (
	MapKindMapping MapKind = iota
	MapKindRequest
	MapKindWithdraw
	MapKindRelease
	MapKindAbort
)

func (k MapKind) String() string {
	switch k {
	case MapKindMapping:
		return "mapping"
	case MapKindRequest:
		return "request"
	case MapKindWithdraw:
		return "withdraw"
	case MapKindRelease:
		return "release"
	case MapKindAbort:
		return "abort"
	}
	return fmt.Sprintf("Unknown Kind (%d)", uint8(k))
}

func mapKindOf(msgType ldp.MessageType) MapKind {
	switch msgType {
	case ldp.MessageTypeLabelRequest:
		return MapKindRequest
	case ldp.MessageTypeLabelWithdraw:
		return MapKindWithdraw
	case ldp.MessageTypeLabelRelease:
		return MapKindRelease
	case ldp.MessageTypeLabelAbortRequest:
		return MapKindAbort
	}
	return MapKindMapping
}

// LDE consumes decoded mapping entries, one call per surviving entry.
type LDE interface {
	Forward(kind MapKind, neighbor netip.Addr, m *ldp.Map)
}

// NeighborConfig is the negotiated, read-only state of one LDP peer.
type NeighborConfig struct {
	LSRID        netip.Addr // peer LDP identifier
	LabelSpace   uint16
	LocalID      netip.Addr // our LSR ID, stamped into outgoing PDU headers
	MaxPDULength uint16     // zero means the RFC5036 default
	V4Enabled    bool
	V6Enabled    bool
}

// Neighbor drives the label message codec for one peer: it packs queued
// mapping entries into PDUs on the send side and dispatches decoded entries
// to the LDE on the receive side. A neighbor is owned by its session
// goroutine; none of its methods are safe for concurrent use.
type Neighbor struct {
	lsrID        netip.Addr
	labelSpace   uint16
	localID      netip.Addr
	maxPDULength uint16
	v4Enabled    bool
	v6Enabled    bool
	msgID        uint32

	transport Transport
	state     SessionState
	notifier  Notifier
	lde       LDE
	metrics   *ldpmetrics.Collector
	logger    *zap.Logger
}

func NewNeighbor(cfg NeighborConfig, transport Transport, state SessionState, lde LDE, metrics *ldpmetrics.Collector, logger *zap.Logger) *Neighbor {
	if cfg.MaxPDULength == 0 {
		cfg.MaxPDULength = ldp.DefaultMaxPDULength
	}
	if metrics == nil {
		metrics = ldpmetrics.NewCollector(prometheus.NewRegistry())
	}

	nbr := &Neighbor{
		lsrID:        cfg.LSRID,
		labelSpace:   cfg.LabelSpace,
		localID:      cfg.LocalID,
		maxPDULength: cfg.MaxPDULength,
		v4Enabled:    cfg.V4Enabled,
		v6Enabled:    cfg.V6Enabled,
		transport:    transport,
		state:        state,
		lde:          lde,
		metrics:      metrics,
		logger:       logger.With(zap.String("neighbor", cfg.LSRID.String())),
	}
	// the neighbor encodes its own notifications onto the transport
	nbr.notifier = nbr
	return nbr
}

// LSRID returns the peer's LDP identifier.
func (nbr *Neighbor) LSRID() netip.Addr {
	return nbr.lsrID
}

// nextMessageID allocates the next LDP message identifier, starting at 1.
func (nbr *Neighbor) nextMessageID() uint32 {
	nbr.msgID++
	return nbr.msgID
}

func (nbr *Neighbor) addressFamilyEnabled(af ldp.AddressFamily) bool {
	switch af {
	case ldp.AddressFamilyIPv4:
		return nbr.v4Enabled
	case ldp.AddressFamilyIPv6:
		return nbr.v6Enabled
	}
	return false
}
