package link

import (
	"sync/atomic"

	"github.com/nextlink/abf/core"
	"github.com/nextlink/abf/fib"
	"github.com/nextlink/abf/utils/comparison"
)

// AdjacencyLabelMap is the bounded, direct-addressed array mapping
// adjacency id -> label, held in two variants per spec §3: the admin map
// (label if the link exists, regardless of reachability) and the reachable
// map (label only if currently up). Both are mutated only through
// single-word atomic stores so the datapath can read a slot without locks
// (spec §5).
type AdjacencyLabelMap struct {
	max      int
	admin    []atomic.Uint32
	reachable []atomic.Uint32
}

// NewAdjacencyLabelMap allocates maps sized for [0, maxAdjacency], with
// maxAdjacency capped at fib.MaxAdjacency. Registering a link whose adjacency
// lies beyond the map is a hard error (Registry.LinkAdd returns
// core.ErrAdjacencyTooLarge).
func NewAdjacencyLabelMap(maxAdjacency int) *AdjacencyLabelMap {
	max := comparison.Min(maxAdjacency, fib.MaxAdjacency)
	m := &AdjacencyLabelMap{
		max:      max,
		admin:    make([]atomic.Uint32, max+1),
		reachable: make([]atomic.Uint32, max+1),
	}
	for i := range m.admin {
		m.admin[i].Store(uint32(LabelInvalid))
		m.reachable[i].Store(uint32(LabelInvalid))
	}
	return m
}

func (m *AdjacencyLabelMap) setAdmin(adj fib.Adj, label Label) {
	if int(adj) > m.max {
		core.LogError("AdjacencyLabelMap", "adjacency ", adj, " exceeds bounded adjacency space")
		return
	}
	m.admin[adj].Store(uint32(label))
}

func (m *AdjacencyLabelMap) setReachable(adj fib.Adj, label Label) {
	if int(adj) > m.max {
		return
	}
	m.reachable[adj].Store(uint32(label))
}

// Admin returns the administratively mapped label for adj, or LabelInvalid.
func (m *AdjacencyLabelMap) Admin(adj fib.Adj) Label {
	if int(adj) > m.max {
		return LabelInvalid
	}
	return Label(m.admin[adj].Load())
}

// Reachable returns the currently reachable label for adj, or LabelInvalid.
func (m *AdjacencyLabelMap) Reachable(adj fib.Adj) Label {
	if int(adj) > m.max {
		return LabelInvalid
	}
	return Label(m.reachable[adj].Load())
}

// Max returns the largest adjacency id the map supports.
func (m *AdjacencyLabelMap) Max() int { return m.max }
