// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package ldp

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap/zapcore"
)

type TLVInterface interface {
	DecodeFromBytes(data []byte) error
	Serialize() []byte
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	Type() TLVType
	Len() uint16 // Total length of Type, Length, and Value
}

// GenericLabel is the Generic Label TLV carrying an MPLS label value in
// the low 20 bits (RFC5036 3.4.2.1).
type GenericLabel struct {
	Label uint32
}

func (tlv *GenericLabel) DecodeFromBytes(data []byte) error {
	if len(data) < int(tlv.Len()) {
		return fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for GenericLabel", tlv.Len(), len(data))
	}

	tlv.Label = binary.BigEndian.Uint32(data[TLVHeaderLength : TLVHeaderLength+4])
	return nil
}

func (tlv *GenericLabel) Serialize() []byte {
	return AppendByteSlices(
		Uint16ToByteSlice(tlv.Type()),
		Uint16ToByteSlice(TLVGenericLabelValueLength),
		Uint32ToByteSlice(tlv.Label),
	)
}

func (tlv *GenericLabel) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("label", LabelString(tlv.Label))
	return nil
}

func (tlv *GenericLabel) Type() TLVType {
	return TLVTypeGenericLabel
}

func (tlv *GenericLabel) Len() uint16 {
	return TLVHeaderLength + TLVGenericLabelValueLength
}

// LabelRequestMessageID is the Label Request Message ID TLV, tying a
// mapping or abort back to the request that triggered it (RFC5036 3.5.9).
type LabelRequestMessageID struct {
	MsgID uint32
}

func (tlv *LabelRequestMessageID) DecodeFromBytes(data []byte) error {
	if len(data) < int(tlv.Len()) {
		return fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for LabelRequestMessageID", tlv.Len(), len(data))
	}

	tlv.MsgID = binary.BigEndian.Uint32(data[TLVHeaderLength : TLVHeaderLength+4])
	return nil
}

func (tlv *LabelRequestMessageID) Serialize() []byte {
	return AppendByteSlices(
		Uint16ToByteSlice(tlv.Type()),
		Uint16ToByteSlice(TLVLabelRequestMessageIDValueLength),
		Uint32ToByteSlice(tlv.MsgID),
	)
}

func (tlv *LabelRequestMessageID) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("messageID", tlv.MsgID)
	return nil
}

func (tlv *LabelRequestMessageID) Type() TLVType {
	return TLVTypeLabelRequestMessageID
}

func (tlv *LabelRequestMessageID) Len() uint16 {
	return TLVHeaderLength + TLVLabelRequestMessageIDValueLength
}

// PWStatus is the PW Status TLV carrying the pseudowire status code word
// (RFC4447 5.4.2).
type PWStatus struct {
	Status uint32
}

func (tlv *PWStatus) DecodeFromBytes(data []byte) error {
	if len(data) < int(tlv.Len()) {
		return fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for PWStatus", tlv.Len(), len(data))
	}

	tlv.Status = binary.BigEndian.Uint32(data[TLVHeaderLength : TLVHeaderLength+4])
	return nil
}

func (tlv *PWStatus) Serialize() []byte {
	return AppendByteSlices(
		Uint16ToByteSlice(tlv.Type()),
		Uint16ToByteSlice(TLVPWStatusValueLength),
		Uint32ToByteSlice(tlv.Status),
	)
}

func (tlv *PWStatus) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("pwStatus", tlv.Status)
	return nil
}

func (tlv *PWStatus) Type() TLVType {
	return TLVTypePWStatus
}

func (tlv *PWStatus) Len() uint16 {
	return TLVHeaderLength + TLVPWStatusValueLength
}

// Status is the Status TLV reporting a status code together with the
// message it refers to (RFC5036 3.4.6). MsgID and MsgType are zero when
// the status does not refer to a particular peer message.
type Status struct {
	Code    StatusCode
	MsgID   uint32
	MsgType MessageType
}

func (tlv *Status) DecodeFromBytes(data []byte) error {
	if len(data) < int(tlv.Len()) {
		return fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for Status", tlv.Len(), len(data))
	}

	tlv.Code = StatusCode(binary.BigEndian.Uint32(data[TLVHeaderLength : TLVHeaderLength+4]))
	tlv.MsgID = binary.BigEndian.Uint32(data[TLVHeaderLength+4 : TLVHeaderLength+8])
	tlv.MsgType = MessageType(binary.BigEndian.Uint16(data[TLVHeaderLength+8 : TLVHeaderLength+10]))
	return nil
}

func (tlv *Status) Serialize() []byte {
	return AppendByteSlices(
		Uint16ToByteSlice(tlv.Type()),
		Uint16ToByteSlice(TLVStatusValueLength),
		Uint32ToByteSlice(tlv.Code),
		Uint32ToByteSlice(tlv.MsgID),
		Uint16ToByteSlice(tlv.MsgType),
	)
}

func (tlv *Status) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("code", tlv.Code.String())
	enc.AddBool("fatal", tlv.Code.IsFatal())
	if tlv.MsgID != 0 {
		enc.AddUint32("refMessageID", tlv.MsgID)
		enc.AddString("refMessageType", tlv.MsgType.String())
	}
	return nil
}

func (tlv *Status) Type() TLVType {
	return TLVTypeStatus
}

func (tlv *Status) Len() uint16 {
	return TLVHeaderLength + TLVStatusValueLength
}

// UnknownTLV preserves a TLV the decoder did not recognize so that it can
// be echoed back inside a Returned TLVs TLV (RFC5561 4.2). RawType keeps
// the U and F bits exactly as received.
type UnknownTLV struct {
	RawType uint16
	Value   []byte
}

func (tlv *UnknownTLV) Serialize() []byte {
	return AppendByteSlices(
		Uint16ToByteSlice(tlv.RawType),
		Uint16ToByteSlice(uint16(len(tlv.Value))),
		tlv.Value,
	)
}

func (tlv *UnknownTLV) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", TLVType(tlv.RawType).String())
	enc.AddUint16("valueLength", uint16(len(tlv.Value)))
	return nil
}

func (tlv *UnknownTLV) Len() uint16 {
	return TLVHeaderLength + uint16(len(tlv.Value))
}

// ReturnedTLVs is the Returned TLVs TLV of an Unknown TLV notification,
// wrapping the TLVs that were not understood (RFC5561 4.2).
type ReturnedTLVs struct {
	TLVs []UnknownTLV
}

func (tlv *ReturnedTLVs) DecodeFromBytes(data []byte) error {
	if len(data) < TLVHeaderLength {
		return fmt.Errorf("data is too short: expected at least %d bytes, but got %d bytes for ReturnedTLVs", TLVHeaderLength, len(data))
	}

	valueLen := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data) < TLVHeaderLength+valueLen {
		return fmt.Errorf("data is too short: expected %d bytes, but got %d bytes for ReturnedTLVs", TLVHeaderLength+valueLen, len(data))
	}

	tlv.TLVs = nil
	rest := data[TLVHeaderLength : TLVHeaderLength+valueLen]
	for len(rest) > 0 {
		if len(rest) < TLVHeaderLength {
			return fmt.Errorf("returned TLV header is truncated: %d bytes left", len(rest))
		}
		innerLen := int(binary.BigEndian.Uint16(rest[2:4]))
		if len(rest) < TLVHeaderLength+innerLen {
			return fmt.Errorf("returned TLV value is truncated: expected %d bytes, but got %d bytes", innerLen, len(rest)-TLVHeaderLength)
		}
		tlv.TLVs = append(tlv.TLVs, UnknownTLV{
			RawType: binary.BigEndian.Uint16(rest[0:2]),
			Value:   append([]byte(nil), rest[TLVHeaderLength:TLVHeaderLength+innerLen]...),
		})
		rest = rest[TLVHeaderLength+innerLen:]
	}
	return nil
}

func (tlv *ReturnedTLVs) Serialize() []byte {
	value := []byte{}
	for i := range tlv.TLVs {
		value = AppendByteSlices(value, tlv.TLVs[i].Serialize())
	}
	return AppendByteSlices(
		Uint16ToByteSlice(tlv.Type()),
		Uint16ToByteSlice(uint16(len(value))),
		value,
	)
}

func (tlv *ReturnedTLVs) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return enc.AddArray("tlvs", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for i := range tlv.TLVs {
			if err := ae.AppendObject(&tlv.TLVs[i]); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (tlv *ReturnedTLVs) Type() TLVType {
	return TLVTypeReturnedTLVs
}

func (tlv *ReturnedTLVs) Len() uint16 {
	l := uint16(TLVHeaderLength)
	for i := range tlv.TLVs {
		l += tlv.TLVs[i].Len()
	}
	return l
}
