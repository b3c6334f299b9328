// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package ldp

import (
	"go.uber.org/zap/zapcore"
)

type MapFlags uint8

// Map flags recording which optional fields of a mapping entry are present
const (
	MapFlagRequestID     MapFlags = 0x01 // Label Request Message ID TLV
	MapFlagPWControlWord MapFlags = 0x02 // C-bit of the pw type field
	MapFlagPWID          MapFlags = 0x04 // pw ID field of a PWid FEC element
	MapFlagPWIfMTU       MapFlags = 0x08 // interface MTU sub-TLV of a PWid FEC element
	MapFlagPWStatus      MapFlags = 0x10 // PW Status TLV
	MapFlagStatus        MapFlags = 0x20 // Status TLV
)

// Map is a single label mapping entry: one FEC element together with the
// optional values that accompany it in a label message. A label message
// carries one or more entries; on the wire the FEC elements share a single
// FEC TLV and the optional TLVs that follow it.
type Map struct {
	MsgID     uint32
	FEC       FECElement
	Label     uint32
	RequestID uint32
	PWStatus  uint32
	Status    Status
	Flags     MapFlags
}

func (m *Map) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("messageID", m.MsgID)
	if m.FEC != nil {
		enc.AddString("fec", m.FEC.String())
	}
	enc.AddString("label", LabelString(m.Label))
	if m.Flags&MapFlagRequestID != 0 {
		enc.AddUint32("requestMessageID", m.RequestID)
	}
	if m.Flags&MapFlagPWStatus != 0 {
		enc.AddUint32("pwStatus", m.PWStatus)
	}
	if m.Flags&MapFlagStatus != 0 {
		enc.AddString("status", m.Status.Code.String())
	}
	return nil
}

// MappingQueue is a FIFO of mapping entries waiting to be packed into PDUs.
// It is not safe for concurrent use; each neighbor session owns its queues.
type MappingQueue struct {
	entries []*Map
}

func NewMappingQueue() *MappingQueue {
	return &MappingQueue{}
}

func (q *MappingQueue) Push(m *Map) {
	q.entries = append(q.entries, m)
}

// Front returns the oldest entry without removing it, or nil when empty.
func (q *MappingQueue) Front() *Map {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

// PopFront removes and returns the oldest entry, or nil when empty.
func (q *MappingQueue) PopFront() *Map {
	if len(q.entries) == 0 {
		return nil
	}
	m := q.entries[0]
	q.entries = q.entries[1:]
	return m
}

func (q *MappingQueue) Len() int {
	return len(q.entries)
}

func (q *MappingQueue) Clear() {
	q.entries = nil
}
