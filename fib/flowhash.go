package fib

import (
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash"
)

// FiveTuple is the packet-identifying tuple used both for ECMP bucket
// selection (the FIB's own hash config) and for label selection within a
// policy action (spec §4.6 step 1).
type FiveTuple struct {
	SrcAddr  [16]byte // first 4 bytes significant for v4
	DstAddr  [16]byte
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
	IsV6     bool

	// DSCP is the packet's Differentiated Services Code Point, carried
	// alongside the identifying tuple for the quality package's DSCP ->
	// service-class classification (SPEC_FULL.md §4, the fwabf_locals.c
	// local sub-selection pass). Not part of the flow-hash input: it
	// doesn't identify a flow direction.
	DSCP uint8
}

// hashBytes builds the byte sequence a flow hash is computed over: the
// tuple and its reverse (src/dst swapped), exactly as spec §4.6 step 1
// requires ("IP pair, ports, protocol, and their reverse"). The two halves
// are put in byte order, so both directions of a flow produce the same bytes
// and land on the same bucket/label.
func (t FiveTuple) hashBytes() []byte {
	n := len(t.SrcAddr)
	half := 2*n + 2 + 2 + 1
	buf := make([]byte, 0, 2*half)
	buf = append(buf, t.SrcAddr[:]...)
	buf = append(buf, t.DstAddr[:]...)
	buf = appendUint16(buf, t.SrcPort)
	buf = appendUint16(buf, t.DstPort)
	buf = append(buf, t.Protocol)
	buf = append(buf, t.DstAddr[:]...)
	buf = append(buf, t.SrcAddr[:]...)
	buf = appendUint16(buf, t.DstPort)
	buf = appendUint16(buf, t.SrcPort)
	buf = append(buf, t.Protocol)
	if bytes.Compare(buf[:half], buf[half:]) > 0 {
		buf = append(append(make([]byte, 0, 2*half), buf[half:]...), buf[:half]...)
	}
	return buf
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

// FlowHash computes a 32-bit flow hash over a 5-tuple, used both to spread
// ECMP buckets and to pick a label/group index (spec §4.6, §9 "Flow-hash
// indexing"). This is the engine's analog of the teacher's
// fw/thread.go:HashNameToFwThread, which hashes a name to a bounded worker
// index; here xxhash (an actual go.mod dependency) replaces sha512 (which
// the teacher used only because it had no faster hash in scope).
func FlowHash(t FiveTuple) uint32 {
	sum := xxhash.Sum64(t.hashBytes())
	return uint32(sum) ^ uint32(sum>>32)
}

// Pow2Mask returns the smallest of {0x0F, 0xFF} covering n elements, and
// n-1, precomputed at construction time per spec §3/§9 so the fast path
// never needs division or modulo.
func Pow2Mask(n int) (nMinus1 uint32, mask uint32) {
	if n <= 0 {
		return 0, 0
	}
	nMinus1 = uint32(n - 1)
	if n <= 16 {
		mask = 0x0F
	} else {
		mask = 0xFF
	}
	return
}

// FlowHashIndex maps a flow hash to an index in [0, n) using the
// pre-computed mask and n-1, with the single fallback-mask rule from spec
// §4.6 step 2: idx = h & mask; if idx > n-1, idx &= n-1.
func FlowHashIndex(h uint32, nMinus1, mask uint32) uint32 {
	idx := h & mask
	if idx > nMinus1 {
		idx &= nMinus1
	}
	return idx
}
