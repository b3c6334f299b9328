// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package server

import (
	"io"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	ldpmetrics "github.com/nttcom/goldp/internal/metrics"
	"github.com/nttcom/goldp/internal/pkg/table"
	"github.com/nttcom/goldp/pkg/packet/ldp"
)

func readPDU(t *testing.T, conn net.Conn) []byte {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	hdrBytes := make([]byte, ldp.HeaderLength)
	if _, err := io.ReadFull(conn, hdrBytes); err != nil {
		t.Fatalf("read PDU header: %v", err)
	}
	var hdr ldp.PDUHeader
	if err := hdr.DecodeFromBytes(hdrBytes); err != nil {
		t.Fatalf("decode PDU header: %v", err)
	}
	body := make([]byte, hdr.Length-(ldp.HeaderLength-ldp.HeaderDeadLength))
	if _, err := io.ReadFull(conn, body); err != nil {
		t.Fatalf("read PDU body: %v", err)
	}
	return append(hdrBytes, body...)
}

func TestServer_SessionLifecycle(t *testing.T) {
	lib := table.NewLIB()
	local, err := lib.AssignLocal(ldp.FECPrefix{Prefix: testPrefixV4})
	assert.NoError(t, err)

	srv := NewServer(testLocalID, 0, lib, ldpmetrics.NewCollector(prometheus.NewRegistry()), zap.NewNop())
	srv.AddNeighbor(netip.MustParseAddr("127.0.0.1"), NeighborConfig{
		LSRID:     testPeerID,
		V4Enabled: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	handled := make(chan struct{})
	go func() {
		defer close(handled)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		srv.handleConn(conn)
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	// the server advertises its local bindings on session establishment
	hdr, msgs := decodePDU(t, readPDU(t, client))
	assert.Equal(t, testLocalID, hdr.LSRID, "our LSR ID in the PDU header")
	if assert.Len(t, msgs, 1) {
		msg, err := ldp.DecodeLabelMessage(msgs[0])
		assert.NoError(t, err)
		assert.Equal(t, ldp.MessageTypeLabelMapping, msg.Type)
		assert.Equal(t, local.Label, msg.Label)

		m := msg.Mappings.PopFront()
		assert.Equal(t, ldp.FECPrefix{Prefix: testPrefixV4}, m.FEC)
	}

	// a mapping from the peer lands in the label information base
	m := &ldp.Map{MsgID: 31, FEC: ldp.FECPrefix{Prefix: testPrefixV4b}, Label: 200}
	if _, err := client.Write(buildPDU(testPeerID, 0, m.SerializeMessage(ldp.MessageTypeLabelMapping))); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	assert.Eventually(t, func() bool {
		label, ok := lib.LookupReceived(testPeerID, ldp.FECPrefix{Prefix: testPrefixV4b})
		return ok && label == 200
	}, 5*time.Second, 10*time.Millisecond, "mapping registered")

	// closing the connection drops the peer's bindings
	client.Close()
	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop")
	}
	_, ok := lib.LookupReceived(testPeerID, ldp.FECPrefix{Prefix: testPrefixV4b})
	assert.False(t, ok, "bindings dropped with the session")
}

func TestServer_RejectsUnconfiguredPeer(t *testing.T) {
	lib := table.NewLIB()
	srv := NewServer(testLocalID, 0, lib, ldpmetrics.NewCollector(prometheus.NewRegistry()), zap.NewNop())
	srv.AddNeighbor(netip.MustParseAddr("192.0.2.1"), NeighborConfig{LSRID: testPeerID})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	handled := make(chan struct{})
	go func() {
		defer close(handled)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		srv.handleConn(conn)
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	_, err = client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF, "connection closed without a session")

	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return")
	}
}
