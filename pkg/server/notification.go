// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package server

import (
	"go.uber.org/zap"

	"github.com/nttcom/goldp/pkg/packet/ldp"
)

// Notify sends a Notification message whose Status TLV references the
// offending message.
func (nbr *Neighbor) Notify(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType) {
	nbr.sendNotification(ldp.Status{Code: code, MsgID: msgID, MsgType: msgType}, nil)
}

// NotifyReturnTLV sends a Notification message echoing a TLV the decoder did
// not understand in a Returned TLVs TLV (RFC5561 5).
func (nbr *Neighbor) NotifyReturnTLV(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType, tlv ldp.UnknownTLV) {
	nbr.sendNotification(
		ldp.Status{Code: code, MsgID: msgID, MsgType: msgType},
		&ldp.ReturnedTLVs{TLVs: []ldp.UnknownTLV{tlv}},
	)
}

func (nbr *Neighbor) sendNotification(status ldp.Status, returned *ldp.ReturnedTLVs) {
	msg := &ldp.NotificationMessage{
		MsgID:    nbr.nextMessageID(),
		Status:   status,
		Returned: returned,
	}

	pdu := ldp.NewPDU(nbr.localID, nbr.labelSpace, nbr.maxPDULength)
	pdu.Add(msg.Serialize())
	nbr.transport.Enqueue(pdu.Finalize())

	nbr.logger.Info("send Notification", zap.Object("notification", msg))
	nbr.metrics.IncNotificationSent(nbr.lsrID, status.Code)
	nbr.metrics.IncPDUSent(nbr.lsrID)
}
