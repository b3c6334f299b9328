// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package ldp

// messagePolicy captures which FEC element kinds a label message type
// accepts. The wildcard restrictions come from RFC5036 3.4.1 and the typed
// wildcard ones from RFC5918 (usage in Label Request, Withdraw and Release
// is mandatory, everything else is excluded).
type messagePolicy struct {
	multiFEC      bool // more than one FEC element per message
	wildcard      bool // wildcard FEC element allowed
	typedWildcard bool // typed wildcard FEC element allowed
	pwIDOptional  bool // PWid element may omit the pw ID field
}

var labelMessagePolicies = map[MessageType]messagePolicy{
	MessageTypeLabelMapping:      {multiFEC: true},
	MessageTypeLabelRequest:      {typedWildcard: true},
	MessageTypeLabelWithdraw:     {wildcard: true, typedWildcard: true, pwIDOptional: true},
	MessageTypeLabelRelease:      {wildcard: true, typedWildcard: true, pwIDOptional: true},
	MessageTypeLabelAbortRequest: {},
}

// ValidWireLabel reports whether a Generic Label TLV value is acceptable
// on the wire: at most 20 bits, and among the reserved labels only the
// explicit null and implicit null values (RFC3032 2.1).
func ValidWireLabel(label uint32) bool {
	if label > LabelMax {
		return false
	}
	if label <= LabelReservedMax &&
		label != LabelIPv4ExplicitNull &&
		label != LabelIPv6ExplicitNull &&
		label != LabelImplicitNull {
		return false
	}
	return true
}

// ValidateLabel checks the entry's label against its FEC kind: an explicit
// null label must match the prefix address family, and pseudowires cannot
// use reserved labels at all. Entries without a label pass; msgType is
// echoed in the error for the notification.
func (m *Map) ValidateLabel(msgType MessageType) error {
	switch fec := m.FEC.(type) {
	case FECPrefix:
		switch fec.AddressFamily() {
		case AddressFamilyIPv4:
			if m.Label == LabelIPv6ExplicitNull {
				return &MessageError{
					Code:     StatusMalformedTLVValue,
					Severity: SeverityShutdown,
					MsgID:    m.MsgID,
					MsgType:  msgType,
				}
			}
		case AddressFamilyIPv6:
			if m.Label == LabelIPv4ExplicitNull {
				return &MessageError{
					Code:     StatusMalformedTLVValue,
					Severity: SeverityShutdown,
					MsgID:    m.MsgID,
					MsgType:  msgType,
				}
			}
		}
	case FECPWid:
		if m.Label <= LabelReservedMax {
			return &MessageError{
				Code:     StatusMalformedTLVValue,
				Severity: SeverityShutdown,
				MsgID:    m.MsgID,
				MsgType:  msgType,
			}
		}
	}
	return nil
}
