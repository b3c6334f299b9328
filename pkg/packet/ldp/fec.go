// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package ldp

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// FECElement is one FEC element of a FEC TLV. The concrete types are
// FECWildcard, FECPrefix, FECPWid and FECTypedWildcard; a mapping entry
// holds exactly one of them.
type FECElement interface {
	ElementType() FECElementType
	String() string

	// wireLen and serialize depend on the entry flags because a PWid
	// element carries its pw ID field and interface MTU sub-TLV only
	// when the matching flags are set.
	wireLen(flags MapFlags) int
	serialize(flags MapFlags) []byte
}

// FECWildcard is the wildcard FEC element, addressing every FEC the
// session has exchanged (RFC5036 3.4.1).
type FECWildcard struct{}

func (FECWildcard) ElementType() FECElementType {
	return FECElementTypeWildcard
}

func (FECWildcard) String() string {
	return "wildcard"
}

func (FECWildcard) wireLen(MapFlags) int {
	return FECElementWildcardLength
}

func (FECWildcard) serialize(MapFlags) []byte {
	return []byte{uint8(FECElementTypeWildcard)}
}

// FECPrefix is the prefix FEC element (RFC5036 3.4.1). Only the leading
// (prefixlen+7)/8 bytes of the address travel on the wire.
type FECPrefix struct {
	Prefix netip.Prefix
}

func (f FECPrefix) ElementType() FECElementType {
	return FECElementTypePrefix
}

func (f FECPrefix) String() string {
	return f.Prefix.String()
}

// AddressFamily returns the IANA family number of the prefix.
func (f FECPrefix) AddressFamily() AddressFamily {
	if f.Prefix.Addr().Unmap().Is4() {
		return AddressFamilyIPv4
	}
	return AddressFamilyIPv6
}

func (f FECPrefix) wireLen(MapFlags) int {
	return FECElementPrefixMinLength + prefixByteLen(f.Prefix.Bits())
}

func (f FECPrefix) serialize(MapFlags) []byte {
	p := f.Prefix.Masked()
	addr := p.Addr().Unmap().AsSlice()
	return AppendByteSlices(
		[]byte{uint8(FECElementTypePrefix)},
		Uint16ToByteSlice(f.AddressFamily()),
		[]byte{uint8(p.Bits())},
		addr[:prefixByteLen(p.Bits())],
	)
}

// FECPWid is the PWid FEC element (RFC4447 5.2). The C-bit of the pw type
// field and the presence of the pw ID and interface MTU fields are tracked
// by the entry flags, not here.
type FECPWid struct {
	Type    PWType
	GroupID uint32
	ID      uint32
	IfMTU   uint16
}

func (f FECPWid) ElementType() FECElementType {
	return FECElementTypePWID
}

func (f FECPWid) String() string {
	return fmt.Sprintf("pw-id %d group-id %d (%s)", f.ID, f.GroupID, f.Type)
}

func (f FECPWid) wireLen(flags MapFlags) int {
	l := FECElementPWIDMinLength
	if flags&MapFlagPWID != 0 {
		l += FECElementPWIDSize
	}
	if flags&MapFlagPWIfMTU != 0 {
		l += int(SubTLVInterfaceMTULength)
	}
	return l
}

func (f FECPWid) serialize(flags MapFlags) []byte {
	pwType := uint16(f.Type)
	pwType = SetBit(pwType, ControlWordFlag, flags&MapFlagPWControlWord != 0)

	var infoLen uint8
	if flags&MapFlagPWID != 0 {
		infoLen += FECElementPWIDSize
	}
	if flags&MapFlagPWIfMTU != 0 {
		infoLen += SubTLVInterfaceMTULength
	}

	buf := AppendByteSlices(
		[]byte{uint8(FECElementTypePWID)},
		Uint16ToByteSlice(pwType),
		[]byte{infoLen},
		Uint32ToByteSlice(f.GroupID),
	)
	if flags&MapFlagPWID != 0 {
		buf = AppendByteSlices(buf, Uint32ToByteSlice(f.ID))
	}
	if flags&MapFlagPWIfMTU != 0 {
		buf = AppendByteSlices(buf,
			[]byte{SubTLVInterfaceMTU, SubTLVInterfaceMTULength},
			Uint16ToByteSlice(f.IfMTU),
		)
	}
	return buf
}

// FECTypedWildcard is the typed wildcard FEC element (RFC5918), addressing
// every FEC of the embedded element type. Only prefix and PWid inner types
// are supported; PrefixFamily is set for a prefix inner type and PWType for
// a PWid inner type.
type FECTypedWildcard struct {
	Inner        FECElementType
	PrefixFamily AddressFamily
	PWType       PWType
}

func (f FECTypedWildcard) ElementType() FECElementType {
	return FECElementTypeTypedWildcard
}

func (f FECTypedWildcard) String() string {
	switch f.Inner {
	case FECElementTypePrefix:
		return fmt.Sprintf("typed wildcard (prefix, %s)", f.PrefixFamily)
	case FECElementTypePWID:
		return fmt.Sprintf("typed wildcard (pseudowire, %s)", f.PWType)
	}
	return fmt.Sprintf("typed wildcard (%s)", f.Inner)
}

func (f FECTypedWildcard) wireLen(MapFlags) int {
	return FECElementTypedWildcardMinLen + 2
}

func (f FECTypedWildcard) serialize(MapFlags) []byte {
	var discriminant uint16
	switch f.Inner {
	case FECElementTypePrefix:
		discriminant = uint16(f.PrefixFamily)
	case FECElementTypePWID:
		discriminant = uint16(f.PWType)
	}
	return AppendByteSlices(
		[]byte{uint8(FECElementTypeTypedWildcard), uint8(f.Inner), 2},
		Uint16ToByteSlice(discriminant),
	)
}

func prefixByteLen(bits int) int {
	return (bits + 7) / 8
}

// serializeFECTLV renders the FEC TLV of a mapping entry. The TLV holds
// the entry's single FEC element; entries packed into the same Label
// Mapping message still travel in separate messages on the send side.
func (m *Map) serializeFECTLV() []byte {
	value := m.FEC.serialize(m.Flags)
	return AppendByteSlices(
		Uint16ToByteSlice(TLVTypeFEC),
		Uint16ToByteSlice(uint16(len(value))),
		value,
	)
}

func (m *Map) fecTLVLen() int {
	return TLVHeaderLength + m.FEC.wireLen(m.Flags)
}

// decodeFECElement parses one FEC element from buf, which holds the
// remaining value bytes of a FEC TLV, and fills the entry's FEC and flags.
// It returns the number of bytes consumed. Wildcard, PWid and typed
// wildcard elements must consume the whole remaining value; only prefix
// elements may be followed by further elements.
func decodeFECElement(buf []byte, m *Map) (int, error) {
	if len(buf) < 1 {
		return 0, newShutdownError(StatusBadTLVLength)
	}

	switch FECElementType(buf[0]) {
	case FECElementTypeWildcard:
		if len(buf) != FECElementWildcardLength {
			return 0, newShutdownError(StatusMalformedTLVValue)
		}
		m.FEC = FECWildcard{}
		return FECElementWildcardLength, nil
	case FECElementTypePrefix:
		return decodeFECPrefix(buf, m)
	case FECElementTypePWID:
		return decodeFECPWid(buf, m)
	case FECElementTypeTypedWildcard:
		return decodeFECTypedWildcard(buf, m)
	default:
		return 0, newNotifyError(StatusUnknownFEC)
	}
}

func decodeFECPrefix(buf []byte, m *Map) (int, error) {
	if len(buf) < FECElementPrefixMinLength {
		return 0, newShutdownError(StatusBadTLVLength)
	}

	var addrLen, maxBits int
	family := AddressFamily(binary.BigEndian.Uint16(buf[1:3]))
	switch family {
	case AddressFamilyIPv4:
		addrLen, maxBits = 4, 32
	case AddressFamilyIPv6:
		addrLen, maxBits = 16, 128
	default:
		return 0, newNotifyError(StatusUnsupportedAddressFamily)
	}

	bits := int(buf[3])
	if bits > maxBits {
		return 0, newShutdownError(StatusMalformedTLVValue)
	}
	byteLen := prefixByteLen(bits)
	if len(buf) < FECElementPrefixMinLength+byteLen {
		return 0, newShutdownError(StatusBadTLVLength)
	}

	raw := make([]byte, addrLen)
	copy(raw, buf[FECElementPrefixMinLength:FECElementPrefixMinLength+byteLen])
	addr, ok := netip.AddrFromSlice(raw)
	if !ok {
		return 0, newShutdownError(StatusMalformedTLVValue)
	}

	// zero out any host bits the sender left in the trailing byte
	m.FEC = FECPrefix{Prefix: netip.PrefixFrom(addr, bits).Masked()}
	return FECElementPrefixMinLength + byteLen, nil
}

func decodeFECPWid(buf []byte, m *Map) (int, error) {
	if len(buf) < FECElementPWIDMinLength {
		return 0, newShutdownError(StatusBadTLVLength)
	}

	pwType := binary.BigEndian.Uint16(buf[1:3])
	if pwType&ControlWordFlag != 0 {
		m.Flags |= MapFlagPWControlWord
		pwType &^= ControlWordFlag
	}

	// the pw info length counts the pw ID field and the sub-TLVs, and
	// the element must end exactly where the TLV value ends
	infoLen := int(buf[3])
	if len(buf) != FECElementPWIDMinLength+infoLen {
		return 0, newShutdownError(StatusBadTLVLength)
	}

	fec := FECPWid{
		Type:    PWType(pwType),
		GroupID: binary.BigEndian.Uint32(buf[4:8]),
	}
	off := FECElementPWIDMinLength

	if infoLen == 0 {
		m.FEC = fec
		return off, nil
	}
	if infoLen < FECElementPWIDSize {
		return 0, newShutdownError(StatusBadTLVLength)
	}

	fec.ID = binary.BigEndian.Uint32(buf[off : off+FECElementPWIDSize])
	m.Flags |= MapFlagPWID
	off += FECElementPWIDSize
	infoLen -= FECElementPWIDSize

	for infoLen > 0 {
		if infoLen < SubTLVHeaderLength {
			return 0, newShutdownError(StatusBadTLVLength)
		}
		subType := buf[off]
		// the sub-TLV length field counts its own two header bytes;
		// a shorter value would stall the loop
		subLen := int(buf[off+1])
		if subLen < SubTLVHeaderLength || subLen > infoLen {
			return 0, newShutdownError(StatusBadTLVLength)
		}

		if subType == SubTLVInterfaceMTU {
			if subLen != int(SubTLVInterfaceMTULength) {
				return 0, newShutdownError(StatusBadTLVLength)
			}
			fec.IfMTU = binary.BigEndian.Uint16(buf[off+SubTLVHeaderLength : off+subLen])
			m.Flags |= MapFlagPWIfMTU
		}

		off += subLen
		infoLen -= subLen
	}

	m.FEC = fec
	return off, nil
}

func decodeFECTypedWildcard(buf []byte, m *Map) (int, error) {
	if len(buf) < FECElementTypedWildcardMinLen {
		return 0, newShutdownError(StatusBadTLVLength)
	}

	inner := FECElementType(buf[1])
	innerLen := int(buf[2])
	if len(buf) != FECElementTypedWildcardMinLen+innerLen {
		return 0, newShutdownError(StatusBadTLVLength)
	}

	fec := FECTypedWildcard{Inner: inner}
	switch inner {
	case FECElementTypePrefix:
		if innerLen != 2 {
			return 0, newShutdownError(StatusBadTLVLength)
		}
		family := AddressFamily(binary.BigEndian.Uint16(buf[3:5]))
		switch family {
		case AddressFamilyIPv4, AddressFamilyIPv6:
		default:
			return 0, newShutdownError(StatusMalformedTLVValue)
		}
		fec.PrefixFamily = family
	case FECElementTypePWID:
		if innerLen != 2 {
			return 0, newShutdownError(StatusBadTLVLength)
		}
		// the reserved bit is ignored on receipt as per RFC6667
		fec.PWType = PWType(binary.BigEndian.Uint16(buf[3:5]) &^ PWTypeWildcardReservedBit)
	default:
		return 0, newNotifyError(StatusUnknownFEC)
	}

	m.FEC = fec
	return FECElementTypedWildcardMinLen + innerLen, nil
}
