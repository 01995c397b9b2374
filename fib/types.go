// Package fib provides the longest-prefix-match forwarding table and the
// dispatch types (DPO, LoadBalance) that the datapath consumes. The FIB
// itself is an external collaborator per spec — this is a narrow, concrete
// stand-in so the Policy Decision Module and Datapath Node are fully
// exercisable without a production FIB.
package fib

// Adj is a small integer identifying a routing adjacency, as exposed by the
// routing subsystem. The adjacency space is bounded (spec assumes <= 65535).
type Adj uint32

// AdjInvalid is the sentinel for "no adjacency."
const AdjInvalid Adj = ^Adj(0)

// MaxAdjacency is the largest adjacency id the engine's direct-addressed
// arrays support. Registration of a Link whose adjacency exceeds this is a
// hard error (spec §9, "Direct-addressed adjacency maps").
const MaxAdjacency = 65535

// Family distinguishes IPv4 from IPv6 state that must never mix under one
// label (spec Non-goals).
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

func (f Family) String() string {
	if f == FamilyV6 {
		return "ip6"
	}
	return "ip4"
}

// DPO (Destination/Dispatch Point Object) pairs a next graph node with the
// adjacency to forward through.
type DPO struct {
	NextNode string
	AdjIndex Adj
}

// IsValid reports whether d names a usable adjacency.
func (d DPO) IsValid() bool { return d.AdjIndex != AdjInvalid }

// LoadBalance is the result of a FIB lookup: one or more candidate DPOs
// (ECMP buckets), enumerated in declared order.
type LoadBalance struct {
	Buckets []DPO
}

// NBuckets returns the number of ECMP buckets.
func (lb *LoadBalance) NBuckets() int { return len(lb.Buckets) }

// Bucket returns the i'th bucket's DPO.
func (lb *LoadBalance) Bucket(i int) DPO { return lb.Buckets[i] }

// Final returns the DPO to use when there is exactly one bucket.
func (lb *LoadBalance) Final() DPO {
	if len(lb.Buckets) == 0 {
		return DPO{AdjIndex: AdjInvalid}
	}
	return lb.Buckets[0]
}
