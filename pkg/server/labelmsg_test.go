// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package server

import (
	"net/netip"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	ldpmetrics "github.com/nttcom/goldp/internal/metrics"
	"github.com/nttcom/goldp/pkg/packet/ldp"
)

type fakeTransport struct {
	pdus [][]byte
}

func (f *fakeTransport) Enqueue(pdu []byte) {
	f.pdus = append(f.pdus, append([]byte(nil), pdu...))
}

type shutdownCall struct {
	code    ldp.StatusCode
	msgID   uint32
	msgType ldp.MessageType
}

type fakeState struct {
	events    []Event
	shutdowns []shutdownCall
}

func (f *fakeState) Signal(ev Event) {
	f.events = append(f.events, ev)
}

func (f *fakeState) Shutdown(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType) {
	f.shutdowns = append(f.shutdowns, shutdownCall{code, msgID, msgType})
}

type notifyCall struct {
	code    ldp.StatusCode
	msgID   uint32
	msgType ldp.MessageType
	tlv     *ldp.UnknownTLV
}

type fakeNotifier struct {
	calls []notifyCall
}

func (f *fakeNotifier) Notify(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType) {
	f.calls = append(f.calls, notifyCall{code, msgID, msgType, nil})
}

func (f *fakeNotifier) NotifyReturnTLV(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType, tlv ldp.UnknownTLV) {
	f.calls = append(f.calls, notifyCall{code, msgID, msgType, &tlv})
}

type forwardCall struct {
	kind     MapKind
	neighbor netip.Addr
	m        *ldp.Map
}

type fakeLDE struct {
	calls []forwardCall
}

func (f *fakeLDE) Forward(kind MapKind, neighbor netip.Addr, m *ldp.Map) {
	f.calls = append(f.calls, forwardCall{kind, neighbor, m})
}

var (
	testLocalID   = netip.MustParseAddr("10.0.0.1")
	testPeerID    = netip.MustParseAddr("10.0.0.2")
	testPrefixV4  = netip.MustParsePrefix("10.1.0.0/16")
	testPrefixV4b = netip.MustParsePrefix("192.0.2.0/24")
	testPrefixV6  = netip.MustParsePrefix("2001:db8::/32")

	// serialized FEC elements and TLVs for hand-built messages
	elemPrefixV4 = []byte{0x02, 0x00, 0x01, 0x10, 0x0a, 0x01}
	elemPrefixV6 = []byte{0x02, 0x00, 0x02, 0x20, 0x20, 0x01, 0x0d, 0xb8}
	labelTLV100  = (&ldp.GenericLabel{Label: 100}).Serialize()
)

func newTestNeighbor(maxPDULength uint16) (*Neighbor, *fakeTransport, *fakeState, *fakeNotifier, *fakeLDE) {
	transport := &fakeTransport{}
	state := &fakeState{}
	notifier := &fakeNotifier{}
	lde := &fakeLDE{}

	nbr := NewNeighbor(NeighborConfig{
		LSRID:        testPeerID,
		LabelSpace:   0,
		LocalID:      testLocalID,
		MaxPDULength: maxPDULength,
		V4Enabled:    true,
	}, transport, state, lde, nil, zap.NewNop())
	nbr.notifier = notifier
	return nbr, transport, state, notifier, lde
}

func buildMessage(msgType ldp.MessageType, msgID uint32, tlvs ...[]byte) []byte {
	body := ldp.AppendByteSlices(tlvs...)
	hdr := ldp.MessageHeader{
		Type:   msgType,
		Length: uint16(len(body)) + ldp.MessageHeaderLength - ldp.MessageDeadLength,
		MsgID:  msgID,
	}
	return ldp.AppendByteSlices(hdr.Serialize(), body)
}

func buildFECTLV(elements ...[]byte) []byte {
	value := ldp.AppendByteSlices(elements...)
	return ldp.AppendByteSlices(
		ldp.Uint16ToByteSlice(ldp.TLVTypeFEC),
		ldp.Uint16ToByteSlice(uint16(len(value))),
		value,
	)
}

func buildRawTLV(rawType uint16, value []byte) []byte {
	return ldp.AppendByteSlices(
		ldp.Uint16ToByteSlice(rawType),
		ldp.Uint16ToByteSlice(uint16(len(value))),
		value,
	)
}

// decodePDU splits one finalized PDU into its header and message byte
// slices, failing the test on malformed framing.
func decodePDU(t *testing.T, pdu []byte) (ldp.PDUHeader, [][]byte) {
	t.Helper()

	var hdr ldp.PDUHeader
	if err := hdr.DecodeFromBytes(pdu); err != nil {
		t.Fatalf("bad PDU header: %v", err)
	}
	assert.Equal(t, int(hdr.Length)+ldp.HeaderDeadLength, len(pdu), "PDU length field")

	var msgs [][]byte
	rest := pdu[ldp.HeaderLength:]
	for len(rest) > 0 {
		var mh ldp.MessageHeader
		if err := mh.DecodeFromBytes(rest); err != nil {
			t.Fatalf("bad message header: %v", err)
		}
		size := int(mh.Length) + ldp.MessageDeadLength
		if size > len(rest) {
			t.Fatalf("message length %d overruns the PDU", mh.Length)
		}
		msgs = append(msgs, rest[:size])
		rest = rest[size:]
	}
	return hdr, msgs
}

func TestSendLabelMessages_EmptyQueue(t *testing.T) {
	nbr, transport, state, _, _ := newTestNeighbor(0)

	err := nbr.SendLabelMessages(ldp.MessageTypeLabelMapping, ldp.NewMappingQueue())
	assert.NoError(t, err)
	assert.Empty(t, transport.pdus, "nothing to send")
	assert.Empty(t, state.events, "no event for an empty queue")
}

func TestSendLabelMessages_PacksOnePDU(t *testing.T) {
	nbr, transport, state, _, _ := newTestNeighbor(0)

	queue := ldp.NewMappingQueue()
	queue.Push(&ldp.Map{FEC: ldp.FECPrefix{Prefix: testPrefixV4}, Label: 100})
	queue.Push(&ldp.Map{FEC: ldp.FECPrefix{Prefix: testPrefixV4b}, Label: 101})

	err := nbr.SendLabelMessages(ldp.MessageTypeLabelMapping, queue)
	assert.NoError(t, err)
	assert.Equal(t, 0, queue.Len(), "queue drained")
	assert.Equal(t, []Event{EventPDUSent}, state.events)

	if !assert.Len(t, transport.pdus, 1) {
		return
	}
	hdr, msgs := decodePDU(t, transport.pdus[0])
	assert.Equal(t, ldp.Version, hdr.Version)
	assert.Equal(t, testLocalID, hdr.LSRID)
	assert.Equal(t, uint16(0), hdr.LabelSpace)
	assert.Len(t, msgs, 2, "both messages share one PDU")

	var mh ldp.MessageHeader
	assert.NoError(t, mh.DecodeFromBytes(msgs[0]))
	assert.Equal(t, ldp.MessageTypeLabelMapping, mh.Type)
	assert.Equal(t, uint32(1), mh.MsgID, "message IDs start at 1")
	assert.NoError(t, mh.DecodeFromBytes(msgs[1]))
	assert.Equal(t, uint32(2), mh.MsgID)
}

func TestSendLabelMessages_SplitsAtPDULimit(t *testing.T) {
	// the two prefix mappings are 26 and 27 bytes on the wire; a 61 byte
	// budget holds the 10 byte PDU header plus the first message but not both
	nbr, transport, state, _, _ := newTestNeighbor(61)

	queue := ldp.NewMappingQueue()
	queue.Push(&ldp.Map{FEC: ldp.FECPrefix{Prefix: testPrefixV4}, Label: 100})
	queue.Push(&ldp.Map{FEC: ldp.FECPrefix{Prefix: testPrefixV4b}, Label: 101})

	err := nbr.SendLabelMessages(ldp.MessageTypeLabelWithdraw, queue)
	assert.NoError(t, err)
	assert.Equal(t, 0, queue.Len())
	assert.Equal(t, []Event{EventPDUSent}, state.events, "one event after the final flush")

	if !assert.Len(t, transport.pdus, 2) {
		return
	}
	for i, pdu := range transport.pdus {
		assert.LessOrEqual(t, len(pdu), 61, "PDU %d within the limit", i)
		_, msgs := decodePDU(t, pdu)
		assert.Len(t, msgs, 1)
	}
}

func TestSendLabelMessages_EntryTooLarge(t *testing.T) {
	// the first entry fits exactly; the second entry is two bytes longer
	// and can never fit, so the batch is abandoned after the flush
	nbr, transport, _, _, _ := newTestNeighbor(36)

	queue := ldp.NewMappingQueue()
	queue.Push(&ldp.Map{FEC: ldp.FECPrefix{Prefix: testPrefixV4}, Label: 100})
	queue.Push(&ldp.Map{FEC: ldp.FECPrefix{Prefix: netip.MustParsePrefix("203.0.113.7/32")}, Label: 101})

	err := nbr.SendLabelMessages(ldp.MessageTypeLabelMapping, queue)
	assert.Error(t, err, "oversized entry fails the batch")
	assert.Equal(t, 0, queue.Len(), "abandoned entries are dropped, not retried")

	if assert.Len(t, transport.pdus, 1, "entries before the oversized one are flushed") {
		_, msgs := decodePDU(t, transport.pdus[0])
		assert.Len(t, msgs, 1)
	}
}

func TestSendLabelMessages_MissingFEC(t *testing.T) {
	nbr, transport, _, _, _ := newTestNeighbor(0)

	queue := ldp.NewMappingQueue()
	queue.Push(&ldp.Map{Label: 100})

	err := nbr.SendLabelMessages(ldp.MessageTypeLabelMapping, queue)
	assert.Error(t, err)
	assert.Equal(t, 0, queue.Len())
	assert.Empty(t, transport.pdus)
}

func TestReceiveLabelMessage_ForwardsMapping(t *testing.T) {
	nbr, _, state, notifier, lde := newTestNeighbor(0)

	m := &ldp.Map{MsgID: 7, FEC: ldp.FECPrefix{Prefix: testPrefixV4}, Label: 100}
	err := nbr.ReceiveLabelMessage(m.SerializeMessage(ldp.MessageTypeLabelMapping))
	assert.NoError(t, err)
	assert.Empty(t, state.shutdowns)
	assert.Empty(t, notifier.calls)

	if assert.Len(t, lde.calls, 1) {
		call := lde.calls[0]
		assert.Equal(t, MapKindMapping, call.kind)
		assert.Equal(t, testPeerID, call.neighbor)
		assert.Equal(t, ldp.FECPrefix{Prefix: testPrefixV4}, call.m.FEC)
		assert.Equal(t, uint32(100), call.m.Label)
	}
}

func TestReceiveLabelMessage_ForwardsWithdraw(t *testing.T) {
	nbr, _, _, _, lde := newTestNeighbor(0)

	m := &ldp.Map{MsgID: 9, FEC: ldp.FECWildcard{}, Label: ldp.NoLabel}
	err := nbr.ReceiveLabelMessage(m.SerializeMessage(ldp.MessageTypeLabelWithdraw))
	assert.NoError(t, err)

	if assert.Len(t, lde.calls, 1) {
		assert.Equal(t, MapKindWithdraw, lde.calls[0].kind)
		assert.Equal(t, ldp.FECWildcard{}, lde.calls[0].m.FEC)
	}
}

func TestReceiveLabelMessage_AddressFamilyGate(t *testing.T) {
	nbr, _, state, notifier, lde := newTestNeighbor(0)

	// one mapping carrying a v4 and a v6 prefix; v6 is not enabled on
	// this session, so only the v4 entry reaches the LDE
	input := buildMessage(ldp.MessageTypeLabelMapping, 11,
		buildFECTLV(elemPrefixV4, elemPrefixV6),
		labelTLV100,
	)

	err := nbr.ReceiveLabelMessage(input)
	assert.NoError(t, err, "a disabled address family is not an error")
	assert.Empty(t, state.shutdowns)
	assert.Empty(t, notifier.calls, "no notification for a skipped entry")

	if assert.Len(t, lde.calls, 1) {
		assert.Equal(t, ldp.FECPrefix{Prefix: testPrefixV4}, lde.calls[0].m.FEC)
	}

	// with v6 enabled the same message delivers both entries
	nbr, _, _, _, lde = newTestNeighbor(0)
	nbr.v6Enabled = true
	assert.NoError(t, nbr.ReceiveLabelMessage(input))
	if assert.Len(t, lde.calls, 2) {
		assert.Equal(t, ldp.FECPrefix{Prefix: testPrefixV6}, lde.calls[1].m.FEC)
	}
}

func TestReceiveLabelMessage_LabelCheckedBeforeFamilyGate(t *testing.T) {
	nbr, _, state, _, lde := newTestNeighbor(0)
	nbr.v4Enabled = false

	// IPv6 Explicit Null on a v4 prefix shuts the session down even
	// though the v4 family is disabled
	m := &ldp.Map{MsgID: 12, FEC: ldp.FECPrefix{Prefix: testPrefixV4}, Label: ldp.LabelIPv6ExplicitNull}
	err := nbr.ReceiveLabelMessage(m.SerializeMessage(ldp.MessageTypeLabelMapping))
	assert.Error(t, err)
	assert.Empty(t, lde.calls)

	if assert.Len(t, state.shutdowns, 1) {
		assert.Equal(t, shutdownCall{ldp.StatusMalformedTLVValue, 12, ldp.MessageTypeLabelMapping}, state.shutdowns[0])
	}
}

func TestReceiveLabelMessage_UnknownTLV(t *testing.T) {
	nbr, _, state, notifier, lde := newTestNeighbor(0)

	unknown := buildRawTLV(0x3f01, []byte{0xbe, 0xef})
	input := buildMessage(ldp.MessageTypeLabelMapping, 13,
		buildFECTLV(elemPrefixV4),
		labelTLV100,
		unknown,
	)

	err := nbr.ReceiveLabelMessage(input)
	assert.NoError(t, err)
	assert.Empty(t, state.shutdowns)
	assert.Len(t, lde.calls, 1, "the mapping is still delivered")

	if assert.Len(t, notifier.calls, 1, "exactly one notification per unknown TLV") {
		call := notifier.calls[0]
		assert.Equal(t, ldp.StatusUnknownTLV, call.code)
		assert.Equal(t, uint32(13), call.msgID)
		assert.Equal(t, ldp.MessageTypeLabelMapping, call.msgType)
		if assert.NotNil(t, call.tlv) {
			assert.Equal(t, uint16(0x3f01), call.tlv.RawType)
			assert.Equal(t, []byte{0xbe, 0xef}, call.tlv.Value)
		}
	}
}

func TestReceiveLabelMessage_NotifySeverity(t *testing.T) {
	nbr, _, state, notifier, lde := newTestNeighbor(0)

	// the FEC TLV must come first
	input := buildMessage(ldp.MessageTypeLabelMapping, 14,
		labelTLV100,
		buildFECTLV(elemPrefixV4),
	)

	err := nbr.ReceiveLabelMessage(input)
	assert.NoError(t, err, "notify severity keeps the session up")
	assert.Empty(t, state.shutdowns)
	assert.Empty(t, lde.calls)

	if assert.Len(t, notifier.calls, 1) {
		assert.Equal(t, notifyCall{ldp.StatusMissingMessageParameters, 14, ldp.MessageTypeLabelMapping, nil}, notifier.calls[0])
	}
}

func TestReceiveLabelMessage_ShutdownSeverity(t *testing.T) {
	nbr, _, state, notifier, lde := newTestNeighbor(0)

	// Generic Label TLV with a truncated value
	input := buildMessage(ldp.MessageTypeLabelMapping, 15,
		buildFECTLV(elemPrefixV4),
		buildRawTLV(uint16(ldp.TLVTypeGenericLabel), []byte{0x00, 0x00}),
	)

	err := nbr.ReceiveLabelMessage(input)
	assert.Error(t, err)
	assert.Empty(t, notifier.calls)
	assert.Empty(t, lde.calls)

	if assert.Len(t, state.shutdowns, 1) {
		assert.Equal(t, shutdownCall{ldp.StatusBadTLVLength, 15, ldp.MessageTypeLabelMapping}, state.shutdowns[0])
	}
}

func TestNeighbor_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := ldpmetrics.NewCollector(reg)

	transport := &fakeTransport{}
	state := &fakeState{}
	lde := &fakeLDE{}
	nbr := NewNeighbor(NeighborConfig{
		LSRID:     testPeerID,
		LocalID:   testLocalID,
		V4Enabled: true,
	}, transport, state, lde, collector, zap.NewNop())

	queue := ldp.NewMappingQueue()
	queue.Push(&ldp.Map{FEC: ldp.FECPrefix{Prefix: testPrefixV4}, Label: 100})
	queue.Push(&ldp.Map{FEC: ldp.FECPrefix{Prefix: testPrefixV4b}, Label: 101})
	assert.NoError(t, nbr.SendLabelMessages(ldp.MessageTypeLabelMapping, queue))

	m := &ldp.Map{MsgID: 3, FEC: ldp.FECPrefix{Prefix: testPrefixV4}, Label: ldp.NoLabel}
	assert.NoError(t, nbr.ReceiveLabelMessage(m.SerializeMessage(ldp.MessageTypeLabelWithdraw)))

	badLabel := buildMessage(ldp.MessageTypeLabelMapping, 4,
		buildFECTLV(elemPrefixV4),
		buildRawTLV(uint16(ldp.TLVTypeGenericLabel), []byte{0x00, 0x00}),
	)
	assert.Error(t, nbr.ReceiveLabelMessage(badLabel))

	peer := nbr.LSRID().String()
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.MessagesSent.WithLabelValues(peer, "Label Mapping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.PDUsSent.WithLabelValues(peer)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.MessagesReceived.WithLabelValues(peer, "Label Withdraw")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.MessagesReceived.WithLabelValues(peer, "Label Mapping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.SessionShutdowns.WithLabelValues(peer, "Bad TLV Length")))
}
