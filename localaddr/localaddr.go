// Package localaddr tracks the router's own IPv4/IPv6 addresses so the
// datapath can bypass ACL-based forwarding for locally-destined traffic
// (spec §1, "Out of scope" collaborator, consumed only through its boolean
// query). Grounded on the teacher's table/network-region.go membership
// table, generalized from a slice of name prefixes scanned linearly to a
// fixed-size hash-set membership test, since spec §4.1 explicitly calls for
// O(1) hash membership over up to ~24,000 entries.
package localaddr

import "sync"

// Filter holds the router's own addresses.
type Filter struct {
	mu sync.RWMutex
	v4 map[[4]byte]struct{}
	v6 map[[16]byte]struct{}
}

// New creates a Filter seeded with 255.255.255.255, as spec §4.1 requires.
func New() *Filter {
	f := &Filter{
		v4: make(map[[4]byte]struct{}, 24000),
		v6: make(map[[16]byte]struct{}, 1024),
	}
	f.v4[[4]byte{255, 255, 255, 255}] = struct{}{}
	return f
}

// Contains4 reports whether addr is one of the router's own IPv4 addresses.
func (f *Filter) Contains4(addr [4]byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.v4[addr]
	return ok
}

// Contains6 reports whether addr is one of the router's own IPv6 addresses.
func (f *Filter) Contains6(addr [16]byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.v6[addr]
	return ok
}

// Add4 registers an IPv4 address, invoked by the routing-layer callback
// when an interface address is added.
func (f *Filter) Add4(addr [4]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v4[addr] = struct{}{}
}

// Add6 registers an IPv6 address.
func (f *Filter) Add6(addr [16]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v6[addr] = struct{}{}
}

// Remove4 unregisters an IPv4 address, invoked when an interface address is
// removed. Idempotent on an address that isn't present.
func (f *Filter) Remove4(addr [4]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.v4, addr)
}

// Remove6 unregisters an IPv6 address. Idempotent.
func (f *Filter) Remove6(addr [16]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.v6, addr)
}
