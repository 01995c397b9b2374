package fib

import (
	"net/netip"
	"sync"
)

// entry is a trie node, one per distinct prefix inserted, generalizing the
// teacher's table/fib-strategy.go component trie (which walks NDN name
// components) to a trie walked bit-by-bit over an IP prefix.
type entry struct {
	prefix   netip.Prefix
	children [2]*entry // children[bit]
	buckets  []DPO     // ECMP next hops, declared order
	depth    int       // bits consumed so far
}

// Table is a per-family longest-prefix-match FIB.
type Table struct {
	mu   sync.RWMutex
	root *entry
}

// NewTable creates an empty LPM table.
func NewTable() *Table {
	return &Table{root: &entry{}}
}

func addrBits(a netip.Addr) []byte { return a.AsSlice() }

func bitAt(b []byte, i int) int {
	byteIdx := i / 8
	if byteIdx >= len(b) {
		return 0
	}
	shift := 7 - (i % 8)
	return int((b[byteIdx] >> shift) & 1)
}

// AddRoute installs (or replaces) the ECMP next-hop set for prefix.
func (t *Table) AddRoute(prefix netip.Prefix, buckets []DPO) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bits := addrBits(prefix.Addr())
	n := prefix.Bits()
	cur := t.root
	for d := 0; d < n; d++ {
		b := bitAt(bits, d)
		if cur.children[b] == nil {
			cur.children[b] = &entry{depth: d + 1}
		}
		cur = cur.children[b]
	}
	cur.prefix = prefix
	cur.buckets = buckets
}

// DelRoute removes the route for prefix, if present.
func (t *Table) DelRoute(prefix netip.Prefix) {
	t.mu.Lock()
	defer t.mu.Unlock()
	bits := addrBits(prefix.Addr())
	n := prefix.Bits()
	cur := t.root
	path := make([]*entry, 0, n+1)
	path = append(path, cur)
	for d := 0; d < n; d++ {
		b := bitAt(bits, d)
		if cur.children[b] == nil {
			return
		}
		cur = cur.children[b]
		path = append(path, cur)
	}
	cur.buckets = nil
	// Prune empty leaves bottom-up, mirroring pruneIfEmpty in the teacher's
	// table/fib-strategy.go.
	for i := len(path) - 1; i > 0; i-- {
		node := path[i]
		if node.buckets != nil || node.children[0] != nil || node.children[1] != nil {
			break
		}
		parent := path[i-1]
		parentBits := bitAt(bits, i-1)
		parent.children[parentBits] = nil
	}
}

// Lookup returns the longest-prefix match for addr as a LoadBalance.
func (t *Table) Lookup(addr netip.Addr) LoadBalance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	bits := addrBits(addr)
	cur := t.root
	var best *entry
	if len(cur.buckets) > 0 {
		best = cur
	}
	for d := 0; d < len(bits)*8; d++ {
		b := bitAt(bits, d)
		if cur.children[b] == nil {
			break
		}
		cur = cur.children[b]
		if len(cur.buckets) > 0 {
			best = cur
		}
	}
	if best == nil {
		return LoadBalance{}
	}
	return LoadBalance{Buckets: best.buckets}
}

// LookupV4 performs a FIB lookup for an IPv4 destination, per the datapath
// contract in spec §6 (fib_lookup_v4).
func (t *Table) LookupV4(dst [4]byte) LoadBalance {
	addr := netip.AddrFrom4(dst)
	return t.Lookup(addr)
}

// LookupV6 performs a FIB lookup for an IPv6 destination (fib_lookup_v6).
func (t *Table) LookupV6(dst [16]byte) LoadBalance {
	addr := netip.AddrFrom16(dst)
	return t.Lookup(addr)
}
