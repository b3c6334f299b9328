// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package server

import (
	"fmt"
	"net"
	"net/netip"

	"go.uber.org/zap"

	ldpmetrics "github.com/nttcom/goldp/internal/metrics"
	"github.com/nttcom/goldp/internal/pkg/table"
	"github.com/nttcom/goldp/pkg/packet/ldp"
)

// LDPPort is the well-known LDP session port (RFC5036 2.5.1).
const LDPPort = "646"

// Server accepts LDP session connections from configured neighbors and runs
// one session goroutine per peer.
type Server struct {
	localID    netip.Addr
	labelSpace uint16
	neighbors  map[netip.Addr]NeighborConfig // keyed by transport address
	lib        *table.LIB
	lde        LDE
	metrics    *ldpmetrics.Collector
	logger     *zap.Logger
}

func NewServer(localID netip.Addr, labelSpace uint16, lib *table.LIB, metrics *ldpmetrics.Collector, logger *zap.Logger) *Server {
	return &Server{
		localID:    localID,
		labelSpace: labelSpace,
		neighbors:  map[netip.Addr]NeighborConfig{},
		lib:        lib,
		lde:        NewTableLDE(lib, logger),
		metrics:    metrics,
		logger:     logger,
	}
}

// AddNeighbor registers a configured peer: connections from addr become LDP
// sessions with it. Must be called before Serve.
func (s *Server) AddNeighbor(addr netip.Addr, cfg NeighborConfig) {
	if !cfg.LocalID.IsValid() {
		cfg.LocalID = s.localID
	}
	s.neighbors[addr] = cfg
}

func (s *Server) Serve(address string, port string) error {
	listenInfo := net.JoinHostPort(address, port)
	s.logger.Info("LDP listen", zap.String("listenInfo", listenInfo))
	listener, err := net.Listen("tcp", listenInfo)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	remote, err := netip.ParseAddrPort(conn.RemoteAddr().String())
	if err != nil {
		s.logger.Info("closed a connection with an unparsable remote address", zap.Error(err))
		conn.Close()
		return
	}
	cfg, ok := s.neighbors[remote.Addr().Unmap()]
	if !ok {
		s.logger.Info("rejected a connection from an unconfigured address", zap.String("remote", remote.String()))
		conn.Close()
		return
	}

	// a connection from a configured peer is handled as an established
	// session; the initialization handshake is out of scope here
	ss := NewSession(conn, s.logger)
	ss.nbr = NewNeighbor(cfg, ss, ss, s.lde, s.metrics, s.logger)
	s.logger.Info("LDP session established",
		zap.String("neighbor", cfg.LSRID.String()),
		zap.String("remote", remote.String()))

	if err := s.advertiseLocalBindings(ss.nbr); err != nil {
		s.logger.Info("failed to advertise local bindings", zap.Error(err))
	}
	ss.Established()

	s.lib.DropNeighbor(cfg.LSRID)
	s.logger.Info("removed bindings of a closed session", zap.String("neighbor", cfg.LSRID.String()))
}

// advertiseLocalBindings sends every local binding to the peer as Label
// Mapping messages, downstream unsolicited.
func (s *Server) advertiseLocalBindings(nbr *Neighbor) error {
	queue := ldp.NewMappingQueue()
	for _, b := range s.lib.LocalBindings() {
		queue.Push(&ldp.Map{FEC: b.FEC, Label: b.Label})
	}
	return nbr.SendLabelMessages(ldp.MessageTypeLabelMapping, queue)
}
