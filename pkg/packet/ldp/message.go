// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package ldp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"go.uber.org/zap/zapcore"
)

type ErrorSeverity uint8

const (
	// SeverityShutdown means the peer is notified and the session closed.
	SeverityShutdown ErrorSeverity = iota
	// SeverityNotify means the peer is notified and the message dropped;
	// the session stays up.
	SeverityNotify
)

func (s ErrorSeverity) String() string {
	switch s {
	case SeverityShutdown:
		return "session shutdown"
	case SeverityNotify:
		return "message rejected"
	}
	return fmt.Sprintf("Unknown Severity (%d)", uint8(s))
}

// MessageError reports a protocol violation found while decoding or
// dispatching a label message. Code is the status code to send back;
// MsgID and MsgType identify the offending message when known.
type MessageError struct {
	Code     StatusCode
	Severity ErrorSeverity
	MsgID    uint32
	MsgType  MessageType
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Code, e.Severity)
}

func newShutdownError(code StatusCode) *MessageError {
	return &MessageError{Code: code, Severity: SeverityShutdown}
}

func newNotifyError(code StatusCode) *MessageError {
	return &MessageError{Code: code, Severity: SeverityNotify}
}

// PDUHeader is the fixed header of every LDP PDU (RFC5036 3.5.3). Length
// counts everything after the length field itself. The LSR ID is always
// four bytes; together with LabelSpace it forms the LDP identifier.
type PDUHeader struct {
	Version    uint16
	Length     uint16
	LSRID      netip.Addr
	LabelSpace uint16
}

func (h *PDUHeader) DecodeFromBytes(data []byte) error {
	if len(data) < HeaderLength {
		return fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for PDUHeader", HeaderLength, len(data))
	}

	h.Version = binary.BigEndian.Uint16(data[0:2])
	h.Length = binary.BigEndian.Uint16(data[2:4])
	h.LSRID = netip.AddrFrom4([4]byte(data[4:8]))
	h.LabelSpace = binary.BigEndian.Uint16(data[8:10])
	return nil
}

func (h *PDUHeader) Serialize() []byte {
	lsrID := h.LSRID.As4()
	return AppendByteSlices(
		Uint16ToByteSlice(h.Version),
		Uint16ToByteSlice(h.Length),
		lsrID[:],
		Uint16ToByteSlice(h.LabelSpace),
	)
}

// MessageHeader is the fixed header of every LDP message (RFC5036 3.6).
// Length counts the message ID and everything after it.
type MessageHeader struct {
	Type   MessageType
	Length uint16
	MsgID  uint32
}

func (h *MessageHeader) DecodeFromBytes(data []byte) error {
	if len(data) < MessageHeaderLength {
		return fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for MessageHeader", MessageHeaderLength, len(data))
	}

	h.Type = MessageType(binary.BigEndian.Uint16(data[0:2]))
	h.Length = binary.BigEndian.Uint16(data[2:4])
	h.MsgID = binary.BigEndian.Uint32(data[4:8])
	return nil
}

func (h *MessageHeader) Serialize() []byte {
	return AppendByteSlices(
		Uint16ToByteSlice(h.Type),
		Uint16ToByteSlice(h.Length),
		Uint32ToByteSlice(h.MsgID),
	)
}

// LabelMessage is a decoded label message: the mapping entries of its FEC
// TLV together with the optional values that are shared by all of them on
// the wire. MergeOptional folds the shared values into an entry before it
// is handed to the label decision engine.
type LabelMessage struct {
	Type      MessageType
	MsgID     uint32
	Mappings  *MappingQueue
	Label     uint32
	RequestID uint32
	PWStatus  uint32
	Flags     MapFlags
	Unknown   []UnknownTLV
}

// fail stamps the offending message onto protocol errors so the caller
// can echo it in a notification.
func (msg *LabelMessage) fail(err error) error {
	var me *MessageError
	if errors.As(err, &me) {
		me.MsgID = msg.MsgID
		me.MsgType = msg.Type
	}
	return err
}

// MergeOptional folds the message-wide optional values into one mapping
// entry. The PW status word only applies to PWid entries.
func (msg *LabelMessage) MergeOptional(m *Map) {
	m.Flags |= msg.Flags
	m.Label = msg.Label
	if m.Flags&MapFlagRequestID != 0 {
		m.RequestID = msg.RequestID
	}
	if m.Flags&MapFlagPWStatus != 0 {
		if _, ok := m.FEC.(FECPWid); ok {
			m.PWStatus = msg.PWStatus
		}
	}
}

// DecodeLabelMessage parses one label message starting at its message
// header. Protocol violations are returned as *MessageError carrying the
// status code and severity to report; the caller decides between sending
// a notification and shutting the session down.
func DecodeLabelMessage(data []byte) (*LabelMessage, error) {
	var hdr MessageHeader
	if err := hdr.DecodeFromBytes(data); err != nil {
		return nil, newShutdownError(StatusBadMessageLength)
	}
	if !hdr.Type.IsLabelMessage() {
		return nil, fmt.Errorf("%s is not a label message", hdr.Type)
	}

	msg := &LabelMessage{
		Type:     hdr.Type,
		MsgID:    hdr.MsgID,
		Mappings: NewMappingQueue(),
		Label:    NoLabel,
	}
	policy := labelMessagePolicies[hdr.Type]
	rest := data[MessageHeaderLength:]

	// FEC TLV
	if len(rest) < TLVHeaderLength {
		return nil, msg.fail(newShutdownError(StatusBadTLVLength))
	}
	if TLVType(binary.BigEndian.Uint16(rest[0:2])) != TLVTypeFEC {
		return nil, msg.fail(newNotifyError(StatusMissingMessageParameters))
	}
	fecLen := int(binary.BigEndian.Uint16(rest[2:4]))
	if fecLen > len(rest)-TLVHeaderLength {
		return nil, msg.fail(newShutdownError(StatusBadTLVLength))
	}
	rest = rest[TLVHeaderLength:]

	fecRest := rest[:fecLen]
	for {
		m := &Map{MsgID: hdr.MsgID, Label: NoLabel}
		n, err := decodeFECElement(fecRest, m)
		if err != nil {
			return nil, msg.fail(err)
		}

		switch m.FEC.(type) {
		case FECPWid:
			// a PWid element may omit the pw ID only where the FEC
			// is matched against existing state
			if m.Flags&MapFlagPWID == 0 && !policy.pwIDOptional {
				return nil, msg.fail(newNotifyError(StatusMissingMessageParameters))
			}
		case FECWildcard:
			if !policy.wildcard {
				return nil, msg.fail(newShutdownError(StatusUnknownFEC))
			}
		case FECTypedWildcard:
			if !policy.typedWildcard {
				return nil, msg.fail(newShutdownError(StatusUnknownFEC))
			}
		}

		// only Label Mapping messages may carry more than one element
		if !policy.multiFEC && n != len(fecRest) {
			return nil, msg.fail(newShutdownError(StatusMalformedTLVValue))
		}

		msg.Mappings.Push(m)
		fecRest = fecRest[n:]
		if len(fecRest) == 0 {
			break
		}
	}
	rest = rest[fecLen:]

	// Optional Parameters
	currentTLV := 1
	for len(rest) > 0 {
		if len(rest) < TLVHeaderLength {
			return nil, msg.fail(newShutdownError(StatusBadTLVLength))
		}
		rawType := binary.BigEndian.Uint16(rest[0:2])
		tlvLen := int(binary.BigEndian.Uint16(rest[2:4]))
		if tlvLen+TLVHeaderLength > len(rest) {
			return nil, msg.fail(newShutdownError(StatusBadTLVLength))
		}
		tlvBuf := rest[:TLVHeaderLength+tlvLen]

		// for Label Mapping messages the Label TLV is mandatory and
		// must appear right after the FEC TLV
		if currentTLV == 1 && hdr.Type == MessageTypeLabelMapping &&
			rawType&uint16(TLVTypeGenericLabel) == 0 {
			return nil, msg.fail(newNotifyError(StatusMissingMessageParameters))
		}

		switch TLVType(rawType) {
		case TLVTypeLabelRequestMessageID:
			switch hdr.Type {
			case MessageTypeLabelMapping, MessageTypeLabelRequest:
				if tlvLen != int(TLVLabelRequestMessageIDValueLength) {
					return nil, msg.fail(newShutdownError(StatusBadTLVLength))
				}
				var reqID LabelRequestMessageID
				if err := reqID.DecodeFromBytes(tlvBuf); err != nil {
					return nil, msg.fail(newShutdownError(StatusBadTLVLength))
				}
				msg.Flags |= MapFlagRequestID
				msg.RequestID = reqID.MsgID
			default:
				// ignore
			}
		case TLVTypeHopCount, TLVTypePathVector:
			// ignore
		case TLVTypeGenericLabel:
			switch hdr.Type {
			case MessageTypeLabelMapping, MessageTypeLabelWithdraw, MessageTypeLabelRelease:
				if tlvLen != int(TLVGenericLabelValueLength) {
					return nil, msg.fail(newShutdownError(StatusBadTLVLength))
				}
				var label GenericLabel
				if err := label.DecodeFromBytes(tlvBuf); err != nil {
					return nil, msg.fail(newShutdownError(StatusBadTLVLength))
				}
				// do not accept invalid labels
				if !ValidWireLabel(label.Label) {
					return nil, msg.fail(newShutdownError(StatusMalformedTLVValue))
				}
				msg.Label = label.Label
			default:
				// ignore
			}
		case TLVTypeATMLabel, TLVTypeFrameRelayLabel:
			switch hdr.Type {
			case MessageTypeLabelMapping, MessageTypeLabelWithdraw, MessageTypeLabelRelease:
				// unsupported label encodings
				return nil, msg.fail(newShutdownError(StatusMalformedTLVValue))
			default:
				// ignore
			}
		case TLVTypeStatus:
			if tlvLen != int(TLVStatusValueLength) {
				return nil, msg.fail(newShutdownError(StatusBadTLVLength))
			}
			// ignore
		case TLVTypePWStatus:
			switch hdr.Type {
			case MessageTypeLabelMapping:
				if tlvLen != int(TLVPWStatusValueLength) {
					return nil, msg.fail(newShutdownError(StatusBadTLVLength))
				}
				var pws PWStatus
				if err := pws.DecodeFromBytes(tlvBuf); err != nil {
					return nil, msg.fail(newShutdownError(StatusBadTLVLength))
				}
				msg.Flags |= MapFlagPWStatus
				msg.PWStatus = pws.Status
			default:
				// ignore
			}
		default:
			if rawType&UnknownTLVFlag == 0 {
				msg.Unknown = append(msg.Unknown, UnknownTLV{
					RawType: rawType,
					Value:   append([]byte(nil), tlvBuf[TLVHeaderLength:]...),
				})
			}
			// unknown TLVs are otherwise ignored
		}

		rest = rest[TLVHeaderLength+tlvLen:]
		currentTLV++
	}

	return msg, nil
}

// optionalTLVs lists the optional TLVs of a mapping entry in wire order.
func (m *Map) optionalTLVs() []TLVInterface {
	var tlvs []TLVInterface
	if m.Label != NoLabel {
		tlvs = append(tlvs, &GenericLabel{Label: m.Label})
	}
	if m.Flags&MapFlagRequestID != 0 {
		tlvs = append(tlvs, &LabelRequestMessageID{MsgID: m.RequestID})
	}
	if m.Flags&MapFlagPWStatus != 0 {
		tlvs = append(tlvs, &PWStatus{Status: m.PWStatus})
	}
	if m.Flags&MapFlagStatus != 0 {
		status := m.Status
		tlvs = append(tlvs, &status)
	}
	return tlvs
}

// MessageLen is the wire size of the label message SerializeMessage would
// produce for the entry, including the message header.
func (m *Map) MessageLen() uint16 {
	l := uint16(MessageHeaderLength) + uint16(m.fecTLVLen())
	for _, tlv := range m.optionalTLVs() {
		l += tlv.Len()
	}
	return l
}

// SerializeMessage renders one label message carrying the entry's FEC TLV
// followed by its optional TLVs.
func (m *Map) SerializeMessage(msgType MessageType) []byte {
	body := m.serializeFECTLV()
	for _, tlv := range m.optionalTLVs() {
		body = AppendByteSlices(body, tlv.Serialize())
	}

	hdr := MessageHeader{
		Type:   msgType,
		Length: uint16(len(body)) + MessageHeaderLength - MessageDeadLength,
		MsgID:  m.MsgID,
	}
	return AppendByteSlices(hdr.Serialize(), body)
}

// NotificationMessage is a Notification message: a mandatory Status TLV
// plus an optional Returned TLVs TLV echoing TLVs the receiver did not
// understand (RFC5036 3.5.1, RFC5561).
type NotificationMessage struct {
	MsgID    uint32
	Status   Status
	Returned *ReturnedTLVs
}

func (msg *NotificationMessage) DecodeFromBytes(data []byte) error {
	var hdr MessageHeader
	if err := hdr.DecodeFromBytes(data); err != nil {
		return err
	}
	if hdr.Type != MessageTypeNotification {
		return fmt.Errorf("expected a Notification message, but got %s", hdr.Type)
	}
	msg.MsgID = hdr.MsgID

	rest := data[MessageHeaderLength:]
	if len(rest) < TLVHeaderLength || TLVType(binary.BigEndian.Uint16(rest[0:2])) != TLVTypeStatus {
		return fmt.Errorf("notification 0x%08x is missing the Status TLV", hdr.MsgID)
	}
	if err := msg.Status.DecodeFromBytes(rest); err != nil {
		return err
	}
	rest = rest[msg.Status.Len():]

	for len(rest) > 0 {
		if len(rest) < TLVHeaderLength {
			return fmt.Errorf("notification TLV header is truncated: %d bytes left", len(rest))
		}
		tlvLen := int(binary.BigEndian.Uint16(rest[2:4]))
		if tlvLen+TLVHeaderLength > len(rest) {
			return fmt.Errorf("notification TLV value is truncated: expected %d bytes, but got %d bytes", tlvLen, len(rest)-TLVHeaderLength)
		}
		if TLVType(binary.BigEndian.Uint16(rest[0:2])) == TLVTypeReturnedTLVs {
			rtlvs := &ReturnedTLVs{}
			if err := rtlvs.DecodeFromBytes(rest); err != nil {
				return err
			}
			msg.Returned = rtlvs
		}
		rest = rest[TLVHeaderLength+tlvLen:]
	}
	return nil
}

func (msg *NotificationMessage) Serialize() []byte {
	body := msg.Status.Serialize()
	if msg.Returned != nil {
		body = AppendByteSlices(body, msg.Returned.Serialize())
	}

	hdr := MessageHeader{
		Type:   MessageTypeNotification,
		Length: uint16(len(body)) + MessageHeaderLength - MessageDeadLength,
		MsgID:  msg.MsgID,
	}
	return AppendByteSlices(hdr.Serialize(), body)
}

func (msg *NotificationMessage) Len() uint16 {
	l := uint16(MessageHeaderLength) + msg.Status.Len()
	if msg.Returned != nil {
		l += msg.Returned.Len()
	}
	return l
}

func (msg *NotificationMessage) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("messageID", msg.MsgID)
	if err := enc.AddObject("status", &msg.Status); err != nil {
		return err
	}
	if msg.Returned != nil {
		return enc.AddObject("returnedTLVs", msg.Returned)
	}
	return nil
}

// PDU accumulates serialized messages under a single LDP header, capped
// at the maximum PDU length negotiated with the neighbor.
type PDU struct {
	buf    []byte
	maxLen uint16
}

// NewPDU opens a PDU addressed from the given LDP identifier. The header
// length field is left at zero until Finalize.
func NewPDU(lsrID netip.Addr, labelSpace uint16, maxLen uint16) *PDU {
	hdr := PDUHeader{Version: Version, LSRID: lsrID, LabelSpace: labelSpace}
	buf := make([]byte, 0, int(maxLen)+HeaderDeadLength)
	return &PDU{buf: append(buf, hdr.Serialize()...), maxLen: maxLen}
}

// Size is the current PDU size including the version and length fields.
func (p *PDU) Size() uint16 {
	return uint16(len(p.buf))
}

// Fits reports whether a message of the given size can still be added
// without exceeding the maximum PDU length.
func (p *PDU) Fits(msgSize uint16) bool {
	return p.Size()+msgSize <= p.maxLen
}

func (p *PDU) Add(msg []byte) {
	p.buf = append(p.buf, msg...)
}

// Finalize patches the PDU length field and returns the wire image.
func (p *PDU) Finalize() []byte {
	binary.BigEndian.PutUint16(p.buf[2:4], uint16(len(p.buf)-HeaderDeadLength))
	return p.buf
}
