// Copyright (c) 2025 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/goldp/blob/main/LICENSE

package table

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/nttcom/goldp/pkg/packet/ldp"
)

// Binding is one FEC-to-label binding.
type Binding struct {
	FEC   ldp.FECElement
	Label uint32
}

// LIB is the label information base: label bindings received from each
// neighbor plus local bindings pending advertisement. Neighbor sessions run
// in their own goroutines, so access is guarded.
type LIB struct {
	mu        sync.RWMutex
	received  map[netip.Addr]map[string]Binding
	local     map[string]Binding
	nextLabel uint32
}

func NewLIB() *LIB {
	return &LIB{
		received:  map[netip.Addr]map[string]Binding{},
		local:     map[string]Binding{},
		nextLabel: ldp.LabelUnreservedMin,
	}
}

// RegisterReceived records a binding advertised by a neighbor, replacing any
// previous label for the same FEC.
func (lib *LIB) RegisterReceived(neighbor netip.Addr, fec ldp.FECElement, label uint32) {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	bindings, ok := lib.received[neighbor]
	if !ok {
		bindings = map[string]Binding{}
		lib.received[neighbor] = bindings
	}
	bindings[fec.String()] = Binding{FEC: fec, Label: label}
}

// WithdrawReceived removes bindings the neighbor withdrew and returns how
// many were removed. A wildcard FEC removes every binding learned from the
// neighbor; a typed wildcard removes the bindings of its inner kind.
func (lib *LIB) WithdrawReceived(neighbor netip.Addr, fec ldp.FECElement) int {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	bindings := lib.received[neighbor]
	if len(bindings) == 0 {
		return 0
	}

	switch fec.(type) {
	case ldp.FECWildcard, ldp.FECTypedWildcard:
		removed := 0
		for key, b := range bindings {
			if matchesWildcard(fec, b.FEC) {
				delete(bindings, key)
				removed++
			}
		}
		return removed
	}

	if _, ok := bindings[fec.String()]; !ok {
		return 0
	}
	delete(bindings, fec.String())
	return 1
}

// LookupReceived returns the label the neighbor bound to the FEC.
func (lib *LIB) LookupReceived(neighbor netip.Addr, fec ldp.FECElement) (uint32, bool) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	b, ok := lib.received[neighbor][fec.String()]
	if !ok {
		return ldp.NoLabel, false
	}
	return b.Label, true
}

// ReceivedBindings returns a snapshot of the bindings learned from the
// neighbor.
func (lib *LIB) ReceivedBindings(neighbor netip.Addr) []Binding {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	bindings := make([]Binding, 0, len(lib.received[neighbor]))
	for _, b := range lib.received[neighbor] {
		bindings = append(bindings, b)
	}
	return bindings
}

// DropNeighbor forgets everything learned from the neighbor. Called when its
// session goes down.
func (lib *LIB) DropNeighbor(neighbor netip.Addr) {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	delete(lib.received, neighbor)
}

// AssignLocal binds a label from the unreserved range to the FEC, returning
// the existing binding when the FEC already has one.
func (lib *LIB) AssignLocal(fec ldp.FECElement) (Binding, error) {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	if b, ok := lib.local[fec.String()]; ok {
		return b, nil
	}
	if lib.nextLabel > ldp.LabelMax {
		return Binding{}, fmt.Errorf("label space exhausted at %d", lib.nextLabel)
	}

	b := Binding{FEC: fec, Label: lib.nextLabel}
	lib.nextLabel++
	lib.local[fec.String()] = b
	return b, nil
}

// LocalBindings returns a snapshot of the local bindings.
func (lib *LIB) LocalBindings() []Binding {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	bindings := make([]Binding, 0, len(lib.local))
	for _, b := range lib.local {
		bindings = append(bindings, b)
	}
	return bindings
}

// matchesWildcard reports whether a wildcard or typed wildcard FEC addresses
// the given bound FEC (RFC5036 3.4.1, RFC5918 3, RFC6667 2).
func matchesWildcard(wildcard, bound ldp.FECElement) bool {
	switch wildcard := wildcard.(type) {
	case ldp.FECWildcard:
		return true
	case ldp.FECTypedWildcard:
		switch wildcard.Inner {
		case ldp.FECElementTypePrefix:
			p, ok := bound.(ldp.FECPrefix)
			return ok && p.AddressFamily() == wildcard.PrefixFamily
		case ldp.FECElementTypePWID:
			pw, ok := bound.(ldp.FECPWid)
			return ok && (wildcard.PWType == ldp.PWTypeWildcard || pw.Type == wildcard.PWType)
		}
	}
	return false
}
