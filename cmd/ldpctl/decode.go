// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nttcom/goldp/pkg/packet/ldp"
)

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode <hex PDU>",
		Short: "Decode a hex-encoded LDP PDU",
		Args:  cobra.ExactArgs(1),
		RunE:  showDecodedPDU,
	}

	decodeCmd.Flags().BoolP("json", "j", false, "output json format")
	return decodeCmd
}

// decodedMessage holds one message of the PDU. Exactly one of entries and
// notification is set for the message types the codec understands; both
// are nil for session messages and unknown types.
type decodedMessage struct {
	header       ldp.MessageHeader
	entries      []*ldp.Map
	unknown      []ldp.UnknownTLV
	notification *ldp.NotificationMessage
}

func showDecodedPDU(cmd *cobra.Command, args []string) error {
	jsonFlag, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to retrieve 'json' flag: %v", err)
	}

	data, err := hex.DecodeString(strings.Join(strings.Fields(args[0]), ""))
	if err != nil {
		return fmt.Errorf("failed to decode hex input: %v", err)
	}

	var hdr ldp.PDUHeader
	if err := hdr.DecodeFromBytes(data); err != nil {
		return err
	}
	total := int(hdr.Length) + ldp.HeaderDeadLength
	if len(data) < total {
		return fmt.Errorf("PDU is truncated: the length field expects %d bytes, but got %d bytes", total, len(data))
	}

	msgs, err := decodeMessages(data[ldp.HeaderLength:total])
	if err != nil {
		return err
	}

	if jsonFlag {
		// Output in JSON format
		outputJSON, err := json.Marshal(pduToMap(hdr, msgs))
		if err != nil {
			return fmt.Errorf("failed to marshal the decoded PDU to JSON: %v", err)
		}
		fmt.Println(string(outputJSON))
	} else {
		// Output in user-friendly format
		fmt.Printf("PDU: version %d, lsrID %s, labelSpace %d\n", hdr.Version, hdr.LSRID, hdr.LabelSpace)
		for _, msg := range msgs {
			printMessage(msg)
		}
	}
	return nil
}

func decodeMessages(buf []byte) ([]decodedMessage, error) {
	msgs := []decodedMessage{}
	for len(buf) >= ldp.MessageHeaderLength {
		var hdr ldp.MessageHeader
		if err := hdr.DecodeFromBytes(buf); err != nil {
			return nil, err
		}
		size := int(hdr.Length) + ldp.MessageDeadLength
		if int(hdr.Length) < ldp.MessageHeaderLength-ldp.MessageDeadLength || size > len(buf) {
			return nil, fmt.Errorf("message length %d does not fit the PDU", hdr.Length)
		}

		msg := decodedMessage{header: hdr}
		switch {
		case hdr.Type.IsLabelMessage():
			decoded, err := ldp.DecodeLabelMessage(buf[:size])
			if err != nil {
				return nil, fmt.Errorf("failed to decode a %s message: %v", hdr.Type, err)
			}
			for m := decoded.Mappings.PopFront(); m != nil; m = decoded.Mappings.PopFront() {
				decoded.MergeOptional(m)
				msg.entries = append(msg.entries, m)
			}
			msg.unknown = decoded.Unknown
		case hdr.Type == ldp.MessageTypeNotification:
			notification := &ldp.NotificationMessage{}
			if err := notification.DecodeFromBytes(buf[:size]); err != nil {
				return nil, fmt.Errorf("failed to decode a Notification message: %v", err)
			}
			msg.notification = notification
		}
		msgs = append(msgs, msg)
		buf = buf[size:]
	}
	if len(buf) != 0 {
		return nil, fmt.Errorf("PDU carries %d trailing bytes", len(buf))
	}
	return msgs, nil
}

func printMessage(msg decodedMessage) {
	fmt.Printf("%s: messageID %d\n", msg.header.Type, msg.header.MsgID)
	for _, m := range msg.entries {
		fmt.Printf("  FEC: %s\n", m.FEC)
		fmt.Printf("    Label: %s\n", ldp.LabelString(m.Label))
		if m.Flags&ldp.MapFlagRequestID != 0 {
			fmt.Printf("    RequestMessageID: %d\n", m.RequestID)
		}
		if m.Flags&ldp.MapFlagPWStatus != 0 {
			fmt.Printf("    PwStatus: 0x%08x\n", m.PWStatus)
		}
		if m.Flags&ldp.MapFlagStatus != 0 {
			fmt.Printf("    Status: %s\n", m.Status.Code)
		}
	}
	for _, tlv := range msg.unknown {
		fmt.Printf("  UnknownTLV: type 0x%04x, %d bytes\n", tlv.RawType, len(tlv.Value))
	}
	if msg.notification != nil {
		status := msg.notification.Status
		fmt.Printf("  Status: %s, fatal %t\n", status.Code, status.Code.IsFatal())
		if status.MsgID != 0 {
			fmt.Printf("    RefMessage: %s, messageID %d\n", status.MsgType, status.MsgID)
		}
		if msg.notification.Returned != nil {
			for _, tlv := range msg.notification.Returned.TLVs {
				fmt.Printf("  ReturnedTLV: type 0x%04x, %d bytes\n", tlv.RawType, len(tlv.Value))
			}
		}
	}
}

func pduToMap(hdr ldp.PDUHeader, msgs []decodedMessage) map[string]interface{} {
	messages := []map[string]interface{}{}
	for _, msg := range msgs {
		messages = append(messages, messageToMap(msg))
	}
	return map[string]interface{}{
		"version":    hdr.Version,
		"lsrID":      hdr.LSRID.String(),
		"labelSpace": hdr.LabelSpace,
		"messages":   messages,
	}
}

func messageToMap(msg decodedMessage) map[string]interface{} {
	out := map[string]interface{}{
		"type":      msg.header.Type.String(),
		"messageID": msg.header.MsgID,
	}
	if msg.header.Type.IsLabelMessage() {
		entries := []map[string]interface{}{}
		for _, m := range msg.entries {
			entry := map[string]interface{}{
				"fec":   m.FEC.String(),
				"label": ldp.LabelString(m.Label),
			}
			if m.Flags&ldp.MapFlagRequestID != 0 {
				entry["requestMessageID"] = m.RequestID
			}
			if m.Flags&ldp.MapFlagPWStatus != 0 {
				entry["pwStatus"] = m.PWStatus
			}
			if m.Flags&ldp.MapFlagStatus != 0 {
				entry["status"] = m.Status.Code.String()
			}
			entries = append(entries, entry)
		}
		out["mappings"] = entries
	}
	if msg.notification != nil {
		status := map[string]interface{}{
			"code":  msg.notification.Status.Code.String(),
			"fatal": msg.notification.Status.Code.IsFatal(),
		}
		if msg.notification.Status.MsgID != 0 {
			status["refMessageID"] = msg.notification.Status.MsgID
			status["refMessageType"] = msg.notification.Status.MsgType.String()
		}
		out["status"] = status
	}
	return out
}
