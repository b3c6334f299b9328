// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package server

import (
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/nttcom/goldp/pkg/packet/ldp"
)

// Session owns the TCP connection of one established LDP session. It is the
// neighbor's Transport, writing finalized PDUs to the socket, and its
// SessionState, turning shutdown requests into a fatal notification followed
// by a close.
type Session struct {
	tcpConn   net.Conn
	nbr       *Neighbor
	logger    *zap.Logger
	closeOnce sync.Once
}

func NewSession(conn net.Conn, logger *zap.Logger) *Session {
	return &Session{
		tcpConn: conn,
		logger:  logger.With(zap.String("session", conn.RemoteAddr().String())),
	}
}

// Established runs the receive loop for a session that has completed
// initialization. It returns when the transport fails, the peer sends a
// fatal notification, or a protocol violation shuts the session down.
func (ss *Session) Established() {
	defer ss.Close()

	if err := ss.receivePDUs(); err != nil {
		ss.logger.Info("LDP session down", zap.Error(err))
	}
}

func (ss *Session) receivePDUs() error {
	hdrBytes := make([]uint8, ldp.HeaderLength)
	for {
		if _, err := io.ReadFull(ss.tcpConn, hdrBytes); err != nil {
			return err
		}
		var hdr ldp.PDUHeader
		if err := hdr.DecodeFromBytes(hdrBytes); err != nil {
			return err
		}

		if hdr.Version != ldp.Version {
			ss.shutdown(ldp.StatusBadProtocolVersion, 0, 0)
			return fmt.Errorf("unsupported LDP version %d", hdr.Version)
		}
		if hdr.Length < ldp.MinPDULength || hdr.Length > ss.nbr.maxPDULength {
			ss.shutdown(ldp.StatusBadPDULength, 0, 0)
			return fmt.Errorf("PDU length %d is outside [%d, %d]", hdr.Length, ldp.MinPDULength, ss.nbr.maxPDULength)
		}
		if hdr.LSRID != ss.nbr.lsrID || hdr.LabelSpace != ss.nbr.labelSpace {
			ss.shutdown(ldp.StatusBadLDPIdentifier, 0, 0)
			return fmt.Errorf("PDU from %s:%d does not match the neighbor %s:%d", hdr.LSRID, hdr.LabelSpace, ss.nbr.lsrID, ss.nbr.labelSpace)
		}

		// the PDU length field counts the LSR ID and label space already read
		body := make([]uint8, hdr.Length-(ldp.HeaderLength-ldp.HeaderDeadLength))
		if _, err := io.ReadFull(ss.tcpConn, body); err != nil {
			return err
		}
		if err := ss.handlePDU(body); err != nil {
			return err
		}
		ss.Signal(EventPDUReceived)
	}
}

// handlePDU walks the messages in one PDU body, everything after the PDU
// header, and dispatches each to its handler.
func (ss *Session) handlePDU(data []byte) error {
	rest := data
	for len(rest) >= ldp.MessageHeaderLength {
		var hdr ldp.MessageHeader
		if err := hdr.DecodeFromBytes(rest); err != nil {
			return err
		}
		size := int(hdr.Length) + ldp.MessageDeadLength
		if int(hdr.Length) < ldp.MessageHeaderLength-ldp.MessageDeadLength || size > len(rest) {
			ss.shutdown(ldp.StatusBadMessageLength, hdr.MsgID, hdr.Type)
			return fmt.Errorf("message length %d does not fit the PDU", hdr.Length)
		}

		if err := ss.handleMessage(hdr, rest[:size]); err != nil {
			return err
		}
		rest = rest[size:]
	}
	if len(rest) != 0 {
		ss.shutdown(ldp.StatusBadPDULength, 0, 0)
		return fmt.Errorf("%d trailing bytes after the last message of the PDU", len(rest))
	}
	return nil
}

func (ss *Session) handleMessage(hdr ldp.MessageHeader, data []byte) error {
	switch {
	case hdr.Type.IsLabelMessage():
		return ss.nbr.ReceiveLabelMessage(data)
	case hdr.Type == ldp.MessageTypeNotification:
		return ss.handleNotification(hdr, data)
	case hdr.Type == ldp.MessageTypeHello,
		hdr.Type == ldp.MessageTypeInitialization,
		hdr.Type == ldp.MessageTypeKeepalive,
		hdr.Type == ldp.MessageTypeCapability,
		hdr.Type == ldp.MessageTypeAddress,
		hdr.Type == ldp.MessageTypeAddressWithdraw:
		// handled by the discovery and session setup layers
		ss.logger.Debug("received message", zap.String("type", hdr.Type.String()), zap.Uint32("messageID", hdr.MsgID))
		return nil
	default:
		if uint16(hdr.Type)&ldp.UnknownMessageFlag == 0 {
			ss.nbr.notifier.Notify(ldp.StatusUnknownMessageType, hdr.MsgID, hdr.Type)
		}
		ss.logger.Debug("ignored unknown message", zap.String("type", hdr.Type.String()), zap.Uint32("messageID", hdr.MsgID))
		return nil
	}
}

func (ss *Session) handleNotification(hdr ldp.MessageHeader, data []byte) error {
	var msg ldp.NotificationMessage
	if err := msg.DecodeFromBytes(data); err != nil {
		ss.shutdown(ldp.StatusBadTLVLength, hdr.MsgID, hdr.Type)
		return err
	}

	ss.logger.Info("received Notification", zap.Object("notification", &msg))
	if msg.Status.Code.IsFatal() {
		return fmt.Errorf("neighbor closed the session: %s", msg.Status.Code)
	}
	return nil
}

// shutdown is the framing-error path: it counts the shutdown and tears the
// session down via the state machine.
func (ss *Session) shutdown(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType) {
	ss.nbr.metrics.IncSessionShutdown(ss.nbr.lsrID, code)
	ss.Shutdown(code, msgID, msgType)
}

// Enqueue writes one finalized PDU to the TCP connection. A write error is
// not returned; the read loop fails on the broken connection.
func (ss *Session) Enqueue(pdu []byte) {
	if _, err := ss.tcpConn.Write(pdu); err != nil {
		ss.logger.Info("PDU send error", zap.Error(err))
	}
}

func (ss *Session) Signal(ev Event) {
	ss.logger.Debug("session event", zap.String("event", ev.String()))
}

// Shutdown sends a fatal notification referencing the offending message and
// closes the connection.
func (ss *Session) Shutdown(code ldp.StatusCode, msgID uint32, msgType ldp.MessageType) {
	ss.nbr.sendNotification(ldp.Status{Code: code, MsgID: msgID, MsgType: msgType}, nil)
	ss.Close()
}

func (ss *Session) Close() {
	ss.closeOnce.Do(func() {
		ss.logger.Info("close LDP session")
		if err := ss.tcpConn.Close(); err != nil {
			ss.logger.Info("connection close error", zap.Error(err))
		}
	})
}
