// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package server

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nttcom/goldp/pkg/packet/ldp"
)

// SendLabelMessages drains the queue into one or more PDUs, packing as many
// messages of msgType as fit into each. An entry that cannot fit even into
// an empty PDU abandons the whole batch so the sender never spins. An empty
// queue is a no-op.
func (nbr *Neighbor) SendLabelMessages(msgType ldp.MessageType, queue *ldp.MappingQueue) error {
	if queue.Len() == 0 {
		return nil
	}

	pdu := ldp.NewPDU(nbr.localID, nbr.labelSpace, nbr.maxPDULength)
	for queue.Len() > 0 {
		m := queue.Front()
		if m.FEC == nil {
			queue.Clear()
			return fmt.Errorf("mapping entry has no FEC element, abandoned %s batch", msgType)
		}
		size := m.MessageLen()
		if !pdu.Fits(size) {
			if pdu.Size() > ldp.HeaderLength {
				// flush and retry the entry with a fresh PDU
				nbr.flushPDU(pdu)
				pdu = ldp.NewPDU(nbr.localID, nbr.labelSpace, nbr.maxPDULength)
				continue
			}
			queue.Clear()
			return fmt.Errorf("mapping entry for %s needs %d bytes, but the session PDU limit is %d bytes", m.FEC, size, nbr.maxPDULength)
		}

		m.MsgID = nbr.nextMessageID()
		pdu.Add(m.SerializeMessage(msgType))
		nbr.logger.Debug("send label message", zap.String("type", msgType.String()), zap.Object("map", m))
		nbr.metrics.IncMessageSent(nbr.lsrID, msgType)
		queue.PopFront()
	}
	if pdu.Size() > ldp.HeaderLength {
		nbr.flushPDU(pdu)
	}

	nbr.state.Signal(EventPDUSent)
	return nil
}

func (nbr *Neighbor) flushPDU(pdu *ldp.PDU) {
	nbr.transport.Enqueue(pdu.Finalize())
	nbr.metrics.IncPDUSent(nbr.lsrID)
}

// ReceiveLabelMessage decodes one label message starting at its message
// header and dispatches the surviving mapping entries to the label decision
// engine. Protocol violations are reported to the peer; only shutdown
// severity surfaces as an error, telling the session to close.
func (nbr *Neighbor) ReceiveLabelMessage(data []byte) error {
	// count the message by its wire type even when the body is malformed
	var hdr ldp.MessageHeader
	if err := hdr.DecodeFromBytes(data); err == nil {
		nbr.metrics.IncMessageReceived(nbr.lsrID, hdr.Type)
	}

	msg, err := ldp.DecodeLabelMessage(data)
	if err != nil {
		return nbr.handleMessageError(err)
	}

	nbr.logger.Info("received label message",
		zap.String("type", msg.Type.String()),
		zap.Uint32("messageID", msg.MsgID),
		zap.Int("mappings", msg.Mappings.Len()))

	for _, tlv := range msg.Unknown {
		nbr.notifier.NotifyReturnTLV(ldp.StatusUnknownTLV, msg.MsgID, msg.Type, tlv)
	}

	kind := mapKindOf(msg.Type)
	for m := msg.Mappings.PopFront(); m != nil; m = msg.Mappings.PopFront() {
		msg.MergeOptional(m)
		if err := m.ValidateLabel(msg.Type); err != nil {
			return nbr.handleMessageError(err)
		}
		if fec, ok := m.FEC.(ldp.FECPrefix); ok && !nbr.addressFamilyEnabled(fec.AddressFamily()) {
			nbr.logger.Debug("dropped mapping entry for a disabled address family", zap.Object("map", m))
			continue
		}
		nbr.logger.Debug("forward mapping entry", zap.String("kind", kind.String()), zap.Object("map", m))
		nbr.lde.Forward(kind, nbr.lsrID, m)
	}
	return nil
}

// handleMessageError reports a protocol violation to the peer. Notify
// severity sends a notification and keeps the session up; shutdown severity
// tears the session down and is returned to the caller.
func (nbr *Neighbor) handleMessageError(err error) error {
	var me *ldp.MessageError
	if !errors.As(err, &me) {
		return err
	}

	if me.Severity == ldp.SeverityShutdown {
		nbr.logger.Info("shutting down the session", zap.String("code", me.Code.String()), zap.Uint32("messageID", me.MsgID))
		nbr.metrics.IncSessionShutdown(nbr.lsrID, me.Code)
		nbr.state.Shutdown(me.Code, me.MsgID, me.MsgType)
		return err
	}

	nbr.logger.Info("rejected label message", zap.String("code", me.Code.String()), zap.Uint32("messageID", me.MsgID))
	nbr.notifier.Notify(me.Code, me.MsgID, me.MsgType)
	return nil
}
