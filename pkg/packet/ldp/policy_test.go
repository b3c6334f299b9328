// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package ldp

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidWireLabel(t *testing.T) {
	tests := []struct {
		label uint32
		valid bool
	}{
		{LabelIPv4ExplicitNull, true},
		{LabelRouterAlert, false},
		{LabelIPv6ExplicitNull, true},
		{LabelImplicitNull, true},
		{4, false},
		{LabelReservedMax, false},
		{LabelUnreservedMin, true},
		{LabelMax, true},
		{LabelMax + 1, false},
		{NoLabel, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidWireLabel(tt.label), "label %d", tt.label)
	}
}

func TestMap_ValidateLabel(t *testing.T) {
	v4 := FECPrefix{Prefix: netip.MustParsePrefix("10.0.0.0/8")}
	v6 := FECPrefix{Prefix: netip.MustParsePrefix("2001:db8::/32")}
	pw := FECPWid{Type: PWTypeEthernet, GroupID: 1, ID: 2}

	tests := []struct {
		name string
		m    *Map
		err  bool
	}{
		{
			name: "IPv6 explicit null on an IPv4 prefix",
			m:    &Map{FEC: v4, Label: LabelIPv6ExplicitNull},
			err:  true,
		},
		{
			name: "IPv4 explicit null on an IPv6 prefix",
			m:    &Map{FEC: v6, Label: LabelIPv4ExplicitNull},
			err:  true,
		},
		{
			name: "IPv4 explicit null on an IPv4 prefix",
			m:    &Map{FEC: v4, Label: LabelIPv4ExplicitNull},
		},
		{
			name: "IPv6 explicit null on an IPv6 prefix",
			m:    &Map{FEC: v6, Label: LabelIPv6ExplicitNull},
		},
		{
			name: "Unreserved label on a prefix",
			m:    &Map{FEC: v4, Label: 100},
		},
		{
			name: "Reserved label on a pseudowire",
			m:    &Map{FEC: pw, Label: LabelReservedMax},
			err:  true,
		},
		{
			name: "Unreserved label on a pseudowire",
			m:    &Map{FEC: pw, Label: LabelUnreservedMin},
		},
		{
			name: "Pseudowire without a label",
			m:    &Map{FEC: pw, Label: NoLabel},
		},
		{
			name: "Wildcard",
			m:    &Map{FEC: FECWildcard{}, Label: NoLabel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.ValidateLabel(MessageTypeLabelMapping)
			if tt.err {
				assertMessageError(t, err, StatusMalformedTLVValue, SeverityShutdown)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMap_ValidateLabelCarriesMessageIdentity(t *testing.T) {
	m := &Map{
		MsgID: 99,
		FEC:   FECPWid{Type: PWTypeEthernet, GroupID: 1, ID: 2},
		Label: LabelImplicitNull,
	}

	err := m.ValidateLabel(MessageTypeLabelWithdraw)
	var me *MessageError
	if assert.ErrorAs(t, err, &me) {
		assert.Equal(t, uint32(99), me.MsgID)
		assert.Equal(t, MessageTypeLabelWithdraw, me.MsgType)
	}
}
