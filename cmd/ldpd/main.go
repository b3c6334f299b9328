// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package main

import (
	"flag"
	"log"
	"net"
	"net/http"
	"net/netip"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nttcom/goldp/internal/config"
	ldpmetrics "github.com/nttcom/goldp/internal/metrics"
	"github.com/nttcom/goldp/internal/pkg/gobgp"
	"github.com/nttcom/goldp/internal/pkg/table"
	"github.com/nttcom/goldp/pkg/logger"
	"github.com/nttcom/goldp/pkg/packet/ldp"
	"github.com/nttcom/goldp/pkg/server"
)

type Flags struct {
	ConfigFile string
	Debug      bool
}

func main() {
	f := new(Flags)
	flag.StringVar(&f.ConfigFile, "f", "ldpd.yaml", "Specify a configuration file")
	flag.BoolVar(&f.Debug, "d", false, "Enable debug logging")
	flag.Parse()

	c, err := config.ReadConfigFile(f.ConfigFile)
	if err != nil {
		log.Panic(err)
	}
	if err := os.MkdirAll(c.Global.Log.Path, 0755); err != nil {
		log.Panic(err)
	}
	fp, err := os.OpenFile(c.Global.Log.Path+c.Global.Log.Name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Panic(err)
	}
	defer fp.Close()

	logger := logger.LogInit(fp, f.Debug)
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Println("Failed to logger Sync", err)
		}
	}()
	zap.ReplaceGlobals(logger)

	routerID, err := netip.ParseAddr(c.Global.RouterID)
	if err != nil {
		logger.Panic("Failed to parse router-id", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	collector := ldpmetrics.NewCollector(registry)
	if c.Global.Metrics.Port != "" {
		go serveMetrics(c.Global.Metrics.Address, c.Global.Metrics.Port, registry, logger)
	}

	lib := table.NewLIB()
	if c.Global.Gobgp.Port != "" {
		prefixes, err := gobgp.GetUnicastRoutes(c.Global.Gobgp.Address, c.Global.Gobgp.Port)
		if err != nil {
			logger.Panic("Failed to get unicast routes from GoBGP", zap.Error(err))
		}
		for _, prefix := range prefixes {
			if _, err := lib.AssignLocal(ldp.FECPrefix{Prefix: prefix}); err != nil {
				logger.Panic("Failed to assign a local label", zap.Error(err))
			}
		}
		logger.Info("assigned local labels to GoBGP routes", zap.Int("count", len(prefixes)))
	}

	s := server.NewServer(routerID, c.Global.LabelSpace, lib, collector, logger)
	for _, n := range c.Neighbors {
		lsrID, err := netip.ParseAddr(n.LsrID)
		if err != nil {
			logger.Panic("Failed to parse a neighbor lsr-id", zap.Error(err))
		}
		addr, err := netip.ParseAddr(n.Address)
		if err != nil {
			logger.Panic("Failed to parse a neighbor address", zap.Error(err))
		}
		v4, v6 := n.Ipv4, n.Ipv6
		if !v4 && !v6 {
			v4 = true
		}
		s.AddNeighbor(addr, server.NeighborConfig{
			LSRID:        lsrID,
			LabelSpace:   n.LabelSpace,
			MaxPDULength: n.MaxPDULength,
			V4Enabled:    v4,
			V6Enabled:    v6,
		})
	}

	port := c.Global.Ldp.Port
	if port == "" {
		port = server.LDPPort
	}
	if err := s.Serve(c.Global.Ldp.Address, port); err != nil {
		logger.Panic("Failed to serve LDP", zap.Error(err))
	}
}

func serveMetrics(address string, port string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	listenInfo := net.JoinHostPort(address, port)
	logger.Info("metrics listen", zap.String("listenInfo", listenInfo))
	if err := http.ListenAndServe(listenInfo, mux); err != nil {
		logger.Panic("Failed to serve metrics", zap.Error(err))
	}
}
