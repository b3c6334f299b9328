// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package gobgp

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"

	api "github.com/osrg/gobgp/v3/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/anypb"
)

type GobgpOptions struct {
	GobgpAddr string
	GobgpPort string
}

// GetUnicastRoutes fetches the best-path unicast prefixes of the GoBGP
// global RIB, v4 and v6. Each prefix is a FEC candidate for a local label
// binding.
func GetUnicastRoutes(serverAddr string, serverPort string) ([]netip.Prefix, error) {
	gobgpAddress := serverAddr + ":" + serverPort

	// Get connection
	cc, err := grpc.NewClient(
		gobgpAddress,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC client: %v", err)
	}
	defer func() {
		if err := cc.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close gRPC client connection: %v\n", err)
		}
	}()

	// Create gRPC client
	client := api.NewGobgpApiClient(cc)
	ctx := context.Background()

	families := []*api.Family{
		{Afi: api.Family_AFI_IP, Safi: api.Family_SAFI_UNICAST},
		{Afi: api.Family_AFI_IP6, Safi: api.Family_SAFI_UNICAST},
	}

	var prefixes []netip.Prefix
	for _, family := range families {
		routes, err := listUnicastRoutes(ctx, client, family)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, routes...)
	}
	return prefixes, nil
}

func listUnicastRoutes(ctx context.Context, client api.GobgpApiClient, family *api.Family) ([]netip.Prefix, error) {
	req := &api.ListPathRequest{
		TableType: api.TableType_GLOBAL,
		Family:    family,
		SortType:  api.ListPathRequest_PREFIX,
	}

	stream, err := client.ListPath(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve paths: %v", err)
	}

	var prefixes []netip.Prefix
	for {
		r, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error receiving stream data: %v", err)
		}
		prefix, ok, err := convertToPrefix(r.Destination)
		if err != nil {
			return nil, fmt.Errorf("failed to convert path to prefix: %v", err)
		}
		if ok {
			prefixes = append(prefixes, prefix)
		}
	}
	return prefixes, nil
}

// convertToPrefix extracts the destination prefix of the best path.
// Destinations whose NLRI is not a plain IP prefix are skipped.
func convertToPrefix(dst *api.Destination) (netip.Prefix, bool, error) {
	for _, path := range dst.GetPaths() {
		if !path.GetBest() {
			continue
		}
		return prefixFromNlri(path.GetNlri())
	}
	return netip.Prefix{}, false, nil
}

func prefixFromNlri(nlri *anypb.Any) (netip.Prefix, bool, error) {
	typedNlri, err := nlri.UnmarshalNew()
	if err != nil {
		return netip.Prefix{}, false, fmt.Errorf("failed to unmarshal NLRI: %v", err)
	}
	ipPrefix, ok := typedNlri.(*api.IPAddressPrefix)
	if !ok {
		return netip.Prefix{}, false, nil
	}

	addr, err := netip.ParseAddr(ipPrefix.GetPrefix())
	if err != nil {
		return netip.Prefix{}, false, fmt.Errorf("failed to parse prefix %q: %v", ipPrefix.GetPrefix(), err)
	}
	return netip.PrefixFrom(addr, int(ipPrefix.GetPrefixLen())).Masked(), true, nil
}
