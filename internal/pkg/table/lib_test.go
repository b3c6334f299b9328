// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package table

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nttcom/goldp/pkg/packet/ldp"
)

var (
	nbr1 = netip.MustParseAddr("10.255.0.1")
	nbr2 = netip.MustParseAddr("10.255.0.2")

	fecV4  = ldp.FECPrefix{Prefix: netip.MustParsePrefix("10.1.0.0/16")}
	fecV4b = ldp.FECPrefix{Prefix: netip.MustParsePrefix("192.0.2.0/24")}
	fecV6  = ldp.FECPrefix{Prefix: netip.MustParsePrefix("2001:db8::/32")}
	fecPW  = ldp.FECPWid{Type: ldp.PWTypeEthernet, GroupID: 1, ID: 7}
)

func TestLIB_ReceivedBindings(t *testing.T) {
	lib := NewLIB()

	_, ok := lib.LookupReceived(nbr1, fecV4)
	assert.False(t, ok, "empty LIB has no bindings")

	lib.RegisterReceived(nbr1, fecV4, 100)
	lib.RegisterReceived(nbr1, fecV6, 200)
	lib.RegisterReceived(nbr2, fecV4, 300)

	label, ok := lib.LookupReceived(nbr1, fecV4)
	assert.True(t, ok)
	assert.Equal(t, uint32(100), label)

	label, ok = lib.LookupReceived(nbr2, fecV4)
	assert.True(t, ok, "bindings are per neighbor")
	assert.Equal(t, uint32(300), label)

	// re-advertisement replaces the label
	lib.RegisterReceived(nbr1, fecV4, 101)
	label, _ = lib.LookupReceived(nbr1, fecV4)
	assert.Equal(t, uint32(101), label)
	assert.Len(t, lib.ReceivedBindings(nbr1), 2)
}

func TestLIB_WithdrawReceived(t *testing.T) {
	tests := []struct {
		name      string
		withdraw  ldp.FECElement
		removed   int
		remaining int
	}{
		{
			name:      "Exact FEC",
			withdraw:  fecV4,
			removed:   1,
			remaining: 3,
		},
		{
			name:      "Unknown FEC",
			withdraw:  ldp.FECPrefix{Prefix: netip.MustParsePrefix("198.51.100.0/24")},
			removed:   0,
			remaining: 4,
		},
		{
			name:      "Wildcard",
			withdraw:  ldp.FECWildcard{},
			removed:   4,
			remaining: 0,
		},
		{
			name:      "Typed wildcard over IPv4 prefixes",
			withdraw:  ldp.FECTypedWildcard{Inner: ldp.FECElementTypePrefix, PrefixFamily: ldp.AddressFamilyIPv4},
			removed:   2,
			remaining: 2,
		},
		{
			name:      "Typed wildcard over pseudowires",
			withdraw:  ldp.FECTypedWildcard{Inner: ldp.FECElementTypePWID, PWType: ldp.PWTypeWildcard},
			removed:   1,
			remaining: 3,
		},
		{
			name:      "Typed wildcard over a different pw type",
			withdraw:  ldp.FECTypedWildcard{Inner: ldp.FECElementTypePWID, PWType: ldp.PWTypeEthernetTagged},
			removed:   0,
			remaining: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := NewLIB()
			lib.RegisterReceived(nbr1, fecV4, 100)
			lib.RegisterReceived(nbr1, fecV4b, 101)
			lib.RegisterReceived(nbr1, fecV6, 102)
			lib.RegisterReceived(nbr1, fecPW, 103)

			assert.Equal(t, tt.removed, lib.WithdrawReceived(nbr1, tt.withdraw))
			assert.Len(t, lib.ReceivedBindings(nbr1), tt.remaining)
		})
	}
}

func TestLIB_DropNeighbor(t *testing.T) {
	lib := NewLIB()
	lib.RegisterReceived(nbr1, fecV4, 100)
	lib.RegisterReceived(nbr2, fecV4, 200)

	lib.DropNeighbor(nbr1)

	assert.Empty(t, lib.ReceivedBindings(nbr1))
	assert.Len(t, lib.ReceivedBindings(nbr2), 1, "other neighbors keep their bindings")
}

func TestLIB_AssignLocal(t *testing.T) {
	lib := NewLIB()

	first, err := lib.AssignLocal(fecV4)
	assert.NoError(t, err)
	assert.Equal(t, ldp.LabelUnreservedMin, first.Label, "allocation starts above the reserved range")

	second, err := lib.AssignLocal(fecV6)
	assert.NoError(t, err)
	assert.Equal(t, first.Label+1, second.Label)

	again, err := lib.AssignLocal(fecV4)
	assert.NoError(t, err)
	assert.Equal(t, first, again, "same FEC keeps its label")

	assert.Len(t, lib.LocalBindings(), 2)
}

func TestLIB_AssignLocalExhausted(t *testing.T) {
	lib := NewLIB()
	lib.nextLabel = ldp.LabelMax

	_, err := lib.AssignLocal(fecV4)
	assert.NoError(t, err, "the last label is still usable")

	_, err = lib.AssignLocal(fecV6)
	assert.Error(t, err)
}
