// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package ldp

import (
	"bytes"
	"testing"
)

func TestAppendByteSlices(t *testing.T) {
	tests := []struct {
		name     string
		input    [][]byte
		expected []byte
	}{
		{
			name:     "Concatenate non-empty slices",
			input:    [][]byte{{0x01, 0x02}, {0x03, 0x04, 0x05}},
			expected: []byte{0x01, 0x02, 0x03, 0x04, 0x05},
		},
		{
			name:     "Concatenate empty slices",
			input:    [][]byte{{}, {}},
			expected: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AppendByteSlices(tt.input...)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestUint16ToByteSlice(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []byte
	}{
		{
			name:     "Convert uint16 0x0102 to bytes",
			input:    uint16(0x0102),
			expected: []byte{0x01, 0x02},
		},
		{
			name:     "Convert TLVType FEC to bytes",
			input:    TLVTypeFEC,
			expected: []byte{0x01, 0x00},
		},
		{
			name:     "Convert MessageType Label Mapping to bytes",
			input:    MessageTypeLabelMapping,
			expected: []byte{0x04, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result []byte
			switch v := tt.input.(type) {
			case uint16:
				result = Uint16ToByteSlice(v)
			case TLVType:
				result = Uint16ToByteSlice(v)
			case MessageType:
				result = Uint16ToByteSlice(v)
			default:
				t.Fatalf("unexpected type %T", v)
			}
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestUint32ToByteSlice(t *testing.T) {
	tests := []struct {
		name     string
		input    uint32
		expected []byte
	}{
		{
			name:     "Convert 0x01020304 to bytes",
			input:    0x01020304,
			expected: []byte{0x01, 0x02, 0x03, 0x04},
		},
		{
			name:     "Convert 0xFFFFFFFF to bytes",
			input:    0xFFFFFFFF,
			expected: []byte{0xFF, 0xFF, 0xFF, 0xFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Uint32ToByteSlice(tt.input)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestIsBitSet(t *testing.T) {
	tests := []struct {
		name     string
		value    uint16
		mask     uint16
		expected bool
	}{
		{
			name:     "U-bit set",
			value:    0x8304,
			mask:     UnknownTLVFlag,
			expected: true,
		},
		{
			name:     "U-bit clear",
			value:    0x0304,
			mask:     UnknownTLVFlag,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBitSet(tt.value, tt.mask); got != tt.expected {
				t.Errorf("IsBitSet(%#04x, %#04x) = %v, want %v", tt.value, tt.mask, got, tt.expected)
			}
		})
	}
}

func TestSetBit(t *testing.T) {
	tests := []struct {
		name      string
		value     uint16
		bit       uint16
		condition bool
		expected  uint16
	}{
		{
			name:      "Set the C-bit",
			value:     0x0005,
			bit:       ControlWordFlag,
			condition: true,
			expected:  0x8005,
		},
		{
			name:      "Leave the C-bit clear",
			value:     0x0005,
			bit:       ControlWordFlag,
			condition: false,
			expected:  0x0005,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SetBit(tt.value, tt.bit, tt.condition); got != tt.expected {
				t.Errorf("SetBit(%#04x, %#04x, %v) = %#04x, want %#04x", tt.value, tt.bit, tt.condition, got, tt.expected)
			}
		})
	}
}
