// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package ldp

import (
	"fmt"
	"math"
)

// Version is the LDP protocol version carried in every PDU header (RFC5036 3.5.3).
const Version uint16 = 1

// PDU and message framing lengths
const (
	HeaderLength        = 10 // version + PDU length + LSR ID + label space
	HeaderDeadLength    = 4  // version + PDU length, excluded from the PDU length field
	MessageHeaderLength = 8  // type + length + message ID
	MessageDeadLength   = 4  // type + length, excluded from the message length field
	TLVHeaderLength     = 4  // type + length
	SubTLVHeaderLength  = 2  // type + length, one byte each
)

const (
	// DefaultMaxPDULength is the maximum PDU length before session negotiation (RFC5036 3.5.3).
	DefaultMaxPDULength uint16 = 4096
	// MinPDULength is the smallest valid value of the PDU length field:
	// the LSR ID and label space fields plus one message header.
	MinPDULength uint16 = HeaderLength - HeaderDeadLength + MessageHeaderLength
)

type MessageType uint16

// LDP message types
const (
	MessageTypeNotification      MessageType = 0x0001
	MessageTypeHello             MessageType = 0x0100
	MessageTypeInitialization    MessageType = 0x0200
	MessageTypeKeepalive         MessageType = 0x0201
	MessageTypeCapability        MessageType = 0x0202
	MessageTypeAddress           MessageType = 0x0300
	MessageTypeAddressWithdraw   MessageType = 0x0301
	MessageTypeLabelMapping      MessageType = 0x0400
	MessageTypeLabelRequest      MessageType = 0x0401
	MessageTypeLabelWithdraw     MessageType = 0x0402
	MessageTypeLabelRelease      MessageType = 0x0403
	MessageTypeLabelAbortRequest MessageType = 0x0404
)

// UnknownMessageFlag is the U-bit of the message type field: when set, an
// unknown message is silently ignored instead of being reported (RFC5036 3.6).
const UnknownMessageFlag uint16 = 0x8000

var messageTypeDescriptions = map[MessageType]struct {
	Description string
	Reference   string
}{
	MessageTypeNotification:      {"Notification", "RFC5036"},
	MessageTypeHello:             {"Hello", "RFC5036"},
	MessageTypeInitialization:    {"Initialization", "RFC5036"},
	MessageTypeKeepalive:         {"KeepAlive", "RFC5036"},
	MessageTypeCapability:        {"Capability", "RFC5561"},
	MessageTypeAddress:           {"Address", "RFC5036"},
	MessageTypeAddressWithdraw:   {"Address Withdraw", "RFC5036"},
	MessageTypeLabelMapping:      {"Label Mapping", "RFC5036"},
	MessageTypeLabelRequest:      {"Label Request", "RFC5036"},
	MessageTypeLabelWithdraw:     {"Label Withdraw", "RFC5036"},
	MessageTypeLabelRelease:      {"Label Release", "RFC5036"},
	MessageTypeLabelAbortRequest: {"Label Abort Request", "RFC5036"},
}

func (t MessageType) String() string {
	if desc, ok := messageTypeDescriptions[t]; ok {
		return desc.Description
	}
	return fmt.Sprintf("Unknown Message (0x%04x)", uint16(t))
}

// IsLabelMessage reports whether t is one of the five label distribution
// message types handled by the label message codec.
func (t MessageType) IsLabelMessage() bool {
	switch t {
	case MessageTypeLabelMapping, MessageTypeLabelRequest, MessageTypeLabelWithdraw,
		MessageTypeLabelRelease, MessageTypeLabelAbortRequest:
		return true
	}
	return false
}

type TLVType uint16

// LDP TLV types
const (
	TLVTypeFEC                     TLVType = 0x0100
	TLVTypeAddressList             TLVType = 0x0101
	TLVTypeHopCount                TLVType = 0x0103
	TLVTypePathVector              TLVType = 0x0104
	TLVTypeGenericLabel            TLVType = 0x0200
	TLVTypeATMLabel                TLVType = 0x0201
	TLVTypeFrameRelayLabel         TLVType = 0x0202
	TLVTypeStatus                  TLVType = 0x0300
	TLVTypeExtendedStatus          TLVType = 0x0301
	TLVTypeReturnedPDU             TLVType = 0x0302
	TLVTypeReturnedMessage         TLVType = 0x0303
	TLVTypeCommonHelloParams       TLVType = 0x0400
	TLVTypeIPv4TransportAddress    TLVType = 0x0401
	TLVTypeConfigSequenceNumber    TLVType = 0x0402
	TLVTypeIPv6TransportAddress    TLVType = 0x0403
	TLVTypeCommonSessionParams     TLVType = 0x0500
	TLVTypeATMSessionParams        TLVType = 0x0501
	TLVTypeFrameRelaySessionParams TLVType = 0x0502
	TLVTypeLabelRequestMessageID   TLVType = 0x0600
	TLVTypePWStatus                TLVType = 0x096A
	TLVTypePWInterfaceParams       TLVType = 0x096B
	TLVTypePWGroupID               TLVType = 0x096C
	TLVTypeReturnedTLVs            TLVType = 0x8304
	TLVTypeDynamicCapability       TLVType = 0x8506
	TLVTypeTypedWildcardCapability TLVType = 0x850B
	TLVTypeUnrecognizedNotifCap    TLVType = 0x8603
)

// TLV type field flag bits (RFC5036 3.3)
const (
	// UnknownTLVFlag is the U-bit: when set, an unknown TLV is silently
	// dropped instead of triggering a notification.
	UnknownTLVFlag uint16 = 0x8000
	// ForwardUnknownTLVFlag is the F-bit: when set together with the U-bit,
	// an unknown TLV is forwarded with the containing message.
	ForwardUnknownTLVFlag uint16 = 0x4000
)

var tlvTypeDescriptions = map[TLVType]struct {
	Description string
	Reference   string
}{
	TLVTypeFEC:                     {"FEC", "RFC5036"},
	TLVTypeAddressList:             {"Address List", "RFC5036"},
	TLVTypeHopCount:                {"Hop Count", "RFC5036"},
	TLVTypePathVector:              {"Path Vector", "RFC5036"},
	TLVTypeGenericLabel:            {"Generic Label", "RFC5036"},
	TLVTypeATMLabel:                {"ATM Label", "RFC5036"},
	TLVTypeFrameRelayLabel:         {"Frame Relay Label", "RFC5036"},
	TLVTypeStatus:                  {"Status", "RFC5036"},
	TLVTypeExtendedStatus:          {"Extended Status", "RFC5036"},
	TLVTypeReturnedPDU:             {"Returned PDU", "RFC5036"},
	TLVTypeReturnedMessage:         {"Returned Message", "RFC5036"},
	TLVTypeCommonHelloParams:       {"Common Hello Parameters", "RFC5036"},
	TLVTypeIPv4TransportAddress:    {"IPv4 Transport Address", "RFC5036"},
	TLVTypeConfigSequenceNumber:    {"Configuration Sequence Number", "RFC5036"},
	TLVTypeIPv6TransportAddress:    {"IPv6 Transport Address", "RFC7552"},
	TLVTypeCommonSessionParams:     {"Common Session Parameters", "RFC5036"},
	TLVTypeATMSessionParams:        {"ATM Session Parameters", "RFC5036"},
	TLVTypeFrameRelaySessionParams: {"Frame Relay Session Parameters", "RFC5036"},
	TLVTypeLabelRequestMessageID:   {"Label Request Message ID", "RFC5036"},
	TLVTypePWStatus:                {"PW Status", "RFC4447"},
	TLVTypePWInterfaceParams:       {"PW Interface Parameters", "RFC4447"},
	TLVTypePWGroupID:               {"PW Group ID", "RFC4447"},
	TLVTypeReturnedTLVs:            {"Returned TLVs", "RFC5561"},
	TLVTypeDynamicCapability:       {"Dynamic Capability Announcement", "RFC5561"},
	TLVTypeTypedWildcardCapability: {"Typed Wildcard FEC Capability", "RFC5918"},
	TLVTypeUnrecognizedNotifCap:    {"Unrecognized Notification Capability", "RFC5919"},
}

func (t TLVType) String() string {
	if desc, ok := tlvTypeDescriptions[t]; ok {
		return fmt.Sprintf("%s (%s)", desc.Description, desc.Reference)
	}
	return fmt.Sprintf("Unknown TLV (0x%04x)", uint16(t))
}

// TLV value lengths, excluding the 4-byte TLV header (type + length)
const (
	TLVGenericLabelValueLength          uint16 = 4
	TLVLabelRequestMessageIDValueLength uint16 = 4
	TLVPWStatusValueLength              uint16 = 4
	TLVStatusValueLength                uint16 = 10
)

type StatusCode uint32

// StatusFatalBit is the E-bit of the status code field: when set, the
// notification terminates the session (RFC5036 3.4.6).
const StatusFatalBit uint32 = 0x80000000

// LDP status codes, with the E-bit folded into the value
const (
	StatusSuccess                     StatusCode = 0x00000000
	StatusBadLDPIdentifier            StatusCode = 0x80000001
	StatusBadProtocolVersion          StatusCode = 0x80000002
	StatusBadPDULength                StatusCode = 0x80000003
	StatusUnknownMessageType          StatusCode = 0x00000004
	StatusBadMessageLength            StatusCode = 0x80000005
	StatusUnknownTLV                  StatusCode = 0x00000006
	StatusBadTLVLength                StatusCode = 0x80000007
	StatusMalformedTLVValue           StatusCode = 0x80000008
	StatusHoldTimerExpired            StatusCode = 0x80000009
	StatusShutdown                    StatusCode = 0x8000000A
	StatusLoopDetected                StatusCode = 0x0000000B
	StatusUnknownFEC                  StatusCode = 0x0000000C
	StatusNoRoute                     StatusCode = 0x0000000D
	StatusNoLabelResources            StatusCode = 0x0000000E
	StatusLabelResourcesAvailable     StatusCode = 0x0000000F
	StatusSessionRejectedNoHello      StatusCode = 0x80000010
	StatusSessionRejectedAdvMode      StatusCode = 0x80000011
	StatusSessionRejectedMaxPDULength StatusCode = 0x80000012
	StatusSessionRejectedLabelRange   StatusCode = 0x80000013
	StatusKeepaliveTimerExpired       StatusCode = 0x80000014
	StatusLabelRequestAborted         StatusCode = 0x00000015
	StatusMissingMessageParameters    StatusCode = 0x00000016
	StatusUnsupportedAddressFamily    StatusCode = 0x00000017
	StatusSessionRejectedBadKeepalive StatusCode = 0x80000018
	StatusInternalError               StatusCode = 0x80000019
	StatusIllegalCBit                 StatusCode = 0x24000001
	StatusWrongCBit                   StatusCode = 0x24000002
	StatusIncompatibleBitRate         StatusCode = 0x24000003
	StatusCEPTDMMisconfiguration      StatusCode = 0x24000004
	StatusPWStatusNotSupported        StatusCode = 0x24000005
	StatusUnassignedTAI               StatusCode = 0x24000006
	StatusMisconfigurationError       StatusCode = 0x24000007
	StatusWithdrawMethod              StatusCode = 0x24000008
	StatusUnsupportedCapability       StatusCode = 0x0000002E
	StatusEndOfLIB                    StatusCode = 0x0000002F
	StatusTransportMismatch           StatusCode = 0x80000032
	StatusDualStackNoncompliance      StatusCode = 0x80000033
)

var statusCodeDescriptions = map[StatusCode]struct {
	Description string
	Reference   string
}{
	StatusSuccess:                     {"Success", "RFC5036"},
	StatusBadLDPIdentifier:            {"Bad LDP Identifier", "RFC5036"},
	StatusBadProtocolVersion:          {"Bad Protocol Version", "RFC5036"},
	StatusBadPDULength:                {"Bad PDU Length", "RFC5036"},
	StatusUnknownMessageType:          {"Unknown Message Type", "RFC5036"},
	StatusBadMessageLength:            {"Bad Message Length", "RFC5036"},
	StatusUnknownTLV:                  {"Unknown TLV", "RFC5036"},
	StatusBadTLVLength:                {"Bad TLV Length", "RFC5036"},
	StatusMalformedTLVValue:           {"Malformed TLV Value", "RFC5036"},
	StatusHoldTimerExpired:            {"Hold Timer Expired", "RFC5036"},
	StatusShutdown:                    {"Shutdown", "RFC5036"},
	StatusLoopDetected:                {"Loop Detected", "RFC5036"},
	StatusUnknownFEC:                  {"Unknown FEC", "RFC5036"},
	StatusNoRoute:                     {"No Route", "RFC5036"},
	StatusNoLabelResources:            {"No Label Resources", "RFC5036"},
	StatusLabelResourcesAvailable:     {"Label Resources Available", "RFC5036"},
	StatusSessionRejectedNoHello:      {"Session Rejected, No Hello", "RFC5036"},
	StatusSessionRejectedAdvMode:      {"Session Rejected, Parameters Advertisement Mode", "RFC5036"},
	StatusSessionRejectedMaxPDULength: {"Session Rejected, Parameters Max PDU Length", "RFC5036"},
	StatusSessionRejectedLabelRange:   {"Session Rejected, Parameters Label Range", "RFC5036"},
	StatusKeepaliveTimerExpired:       {"KeepAlive Timer Expired", "RFC5036"},
	StatusLabelRequestAborted:         {"Label Request Aborted", "RFC5036"},
	StatusMissingMessageParameters:    {"Missing Message Parameters", "RFC5036"},
	StatusUnsupportedAddressFamily:    {"Unsupported Address Family", "RFC5036"},
	StatusSessionRejectedBadKeepalive: {"Session Rejected, Bad KeepAlive Time", "RFC5036"},
	StatusInternalError:               {"Internal Error", "RFC5036"},
	StatusIllegalCBit:                 {"Illegal C-Bit", "RFC4447"},
	StatusWrongCBit:                   {"Wrong C-Bit", "RFC4447"},
	StatusIncompatibleBitRate:         {"Incompatible Bit-Rate", "RFC5287"},
	StatusCEPTDMMisconfiguration:      {"CEP-TDM Misconfiguration", "RFC5287"},
	StatusPWStatusNotSupported:        {"PW Status Not Supported", "RFC4447"},
	StatusUnassignedTAI:               {"Unassigned/Unrecognized TAI", "RFC4447"},
	StatusMisconfigurationError:       {"Generic Misconfiguration Error", "RFC4447"},
	StatusWithdrawMethod:              {"Label Withdraw PW Status Method", "RFC4447"},
	StatusUnsupportedCapability:       {"Unsupported Capability", "RFC5561"},
	StatusEndOfLIB:                    {"End-of-LIB", "RFC5919"},
	StatusTransportMismatch:           {"Transport Connection Mismatch", "RFC7552"},
	StatusDualStackNoncompliance:      {"Dual-Stack Noncompliance", "RFC7552"},
}

func (c StatusCode) String() string {
	if desc, ok := statusCodeDescriptions[c]; ok {
		return desc.Description
	}
	return fmt.Sprintf("Unknown Status (0x%08x)", uint32(c))
}

// IsFatal reports whether the E-bit is set, meaning the sender terminates
// the session after the notification.
func (c StatusCode) IsFatal() bool {
	return IsBitSet(uint32(c), StatusFatalBit)
}

type AddressFamily uint16

// IANA address family numbers used by the FEC prefix encodings (RFC5036 3.4.1)
const (
	AddressFamilyIPv4 AddressFamily = 0x1
	AddressFamilyIPv6 AddressFamily = 0x2
)

func (af AddressFamily) String() string {
	switch af {
	case AddressFamilyIPv4:
		return "ipv4"
	case AddressFamilyIPv6:
		return "ipv6"
	}
	return fmt.Sprintf("Unknown Address Family (0x%04x)", uint16(af))
}

type FECElementType uint8

// FEC element types
const (
	FECElementTypeWildcard        FECElementType = 0x01
	FECElementTypePrefix          FECElementType = 0x02
	FECElementTypeTypedWildcard   FECElementType = 0x05
	FECElementTypePWID            FECElementType = 0x80
	FECElementTypeGeneralizedPWID FECElementType = 0x81
)

var fecElementTypeDescriptions = map[FECElementType]struct {
	Description string
	Reference   string
}{
	FECElementTypeWildcard:        {"Wildcard", "RFC5036"},
	FECElementTypePrefix:          {"Prefix", "RFC5036"},
	FECElementTypeTypedWildcard:   {"Typed Wildcard", "RFC5918"},
	FECElementTypePWID:            {"PWid", "RFC4447"},
	FECElementTypeGeneralizedPWID: {"Generalized PWid", "RFC4447"},
}

func (t FECElementType) String() string {
	if desc, ok := fecElementTypeDescriptions[t]; ok {
		return desc.Description
	}
	return fmt.Sprintf("Unknown FEC Element (0x%02x)", uint8(t))
}

// FEC element lengths on the wire
const (
	FECElementWildcardLength      = 1 // element type only
	FECElementPrefixMinLength     = 4 // element type + address family + prefix length
	FECElementPWIDMinLength       = 8 // element type + pw type + pw info length + group ID
	FECElementPWIDSize            = 4 // pw ID field
	FECElementTypedWildcardMinLen = 3 // element type + inner type + inner length
)

// PWid FEC interface parameter sub-TLV types (RFC4447 5.2)
const (
	SubTLVInterfaceMTU uint8 = 0x01
	// SubTLVInterfaceMTULength counts the whole sub-TLV including its header.
	SubTLVInterfaceMTULength uint8 = 4
)

type PWType uint16

// Pseudowire types (RFC4446)
const (
	PWTypeEthernetTagged PWType = 0x0004
	PWTypeEthernet       PWType = 0x0005
	PWTypeWildcard       PWType = 0x7FFF
)

const (
	// ControlWordFlag is the C-bit carried in the top bit of the pw type
	// field of a PWid FEC element (RFC4447 5.2).
	ControlWordFlag uint16 = 0x8000
	// PWTypeWildcardReservedBit must be ignored on receipt in a typed
	// wildcard PWid FEC element (RFC6667 2).
	PWTypeWildcardReservedBit uint16 = 0x8000
)

func (t PWType) String() string {
	switch t {
	case PWTypeEthernetTagged:
		return "Ethernet Tagged Mode"
	case PWTypeEthernet:
		return "Ethernet"
	case PWTypeWildcard:
		return "Wildcard"
	}
	return fmt.Sprintf("Unknown PW Type (0x%04x)", uint16(t))
}

// MPLS label values (RFC3032 2.1)
const (
	LabelIPv4ExplicitNull uint32 = 0
	LabelRouterAlert      uint32 = 1
	LabelIPv6ExplicitNull uint32 = 2
	LabelImplicitNull     uint32 = 3
	LabelReservedMax      uint32 = 15
	LabelUnreservedMin    uint32 = 16
	LabelMax              uint32 = (1 << 20) - 1

	// NoLabel marks a mapping entry that carries no Generic Label TLV.
	NoLabel uint32 = math.MaxUint32
)

// LabelString renders a label value for logs, naming the reserved labels.
func LabelString(label uint32) string {
	switch label {
	case NoLabel:
		return "none"
	case LabelIPv4ExplicitNull:
		return "IPv4 Explicit Null"
	case LabelRouterAlert:
		return "Router Alert"
	case LabelIPv6ExplicitNull:
		return "IPv6 Explicit Null"
	case LabelImplicitNull:
		return "Implicit Null"
	}
	return fmt.Sprintf("%d", label)
}
