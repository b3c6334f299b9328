// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package server

import (
	"net/netip"

	"go.uber.org/zap"

	"github.com/nttcom/goldp/internal/pkg/table"
	"github.com/nttcom/goldp/pkg/packet/ldp"
)

// TableLDE is a label decision engine that records remote bindings in the
// label information base. Safe for concurrent use by multiple sessions.
type TableLDE struct {
	lib    *table.LIB
	logger *zap.Logger
}

func NewTableLDE(lib *table.LIB, logger *zap.Logger) *TableLDE {
	return &TableLDE{
		lib:    lib,
		logger: logger,
	}
}

func (l *TableLDE) Forward(kind MapKind, neighbor netip.Addr, m *ldp.Map) {
	switch kind {
	case MapKindMapping:
		l.lib.RegisterReceived(neighbor, m.FEC, m.Label)
		l.logger.Info("registered label binding",
			zap.String("neighbor", neighbor.String()),
			zap.String("fec", m.FEC.String()),
			zap.String("label", ldp.LabelString(m.Label)))
	case MapKindWithdraw:
		removed := l.lib.WithdrawReceived(neighbor, m.FEC)
		l.logger.Info("withdrew label bindings",
			zap.String("neighbor", neighbor.String()),
			zap.String("fec", m.FEC.String()),
			zap.Int("removed", removed))
	case MapKindRelease:
		// the peer no longer uses a label we advertised
		l.logger.Info("label released",
			zap.String("neighbor", neighbor.String()),
			zap.Object("map", m))
	case MapKindRequest, MapKindAbort:
		// TODO: answer requests from the local binding table once
		// downstream-on-demand advertisement is supported
		l.logger.Info("label request ignored",
			zap.String("kind", kind.String()),
			zap.String("neighbor", neighbor.String()),
			zap.Object("map", m))
	}
}
