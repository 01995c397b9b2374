// Package defroute implements the Default-Route Tracker: per-family
// tracking of which adjacencies are currently reachable via the all-zeros
// default route, so policy can distinguish "public-Internet" traffic from
// private-subnet traffic (spec §4.3). Grounded on the teacher's
// table/network-region.go membership table — the second place in this
// engine that needs "is X a member of a tracked set," here a per-family
// adjacency bitset instead of a name-prefix list.
package defroute

import (
	"sync"

	"github.com/nextlink/abf/core"
	"github.com/nextlink/abf/fib"
)

// FIBEntryFinder is the narrow routing-subsystem collaborator: find the FIB
// entry for the all-zeros prefix of a family, and enumerate the adjacencies
// it currently resolves to. Out of scope per spec §1; consumed narrowly.
type FIBEntryFinder interface {
	FindDefaultRouteEntry(family fib.Family) (found bool, adjacencies []fib.Adj)
}

// state is NotTracked -> Tracking (fib_entry_handle known) -> {empty,
// non-empty adjacency_set}, per spec §4.8.
type state struct {
	mu       sync.RWMutex
	tracking bool
	set      map[fib.Adj]struct{}
}

// Tracker tracks default-route adjacency membership per family.
type Tracker struct {
	finder FIBEntryFinder
	states [2]state // indexed by fib.Family
}

// New creates a Default-Route Tracker lazily backed by finder.
func New(finder FIBEntryFinder) *Tracker {
	t := &Tracker{finder: finder}
	for i := range t.states {
		t.states[i].set = make(map[fib.Adj]struct{})
	}
	return t
}

// TryInit attempts to discover the default-route FIB entry for family if
// it hasn't been found yet. Spec §4.3: "initialized lazily: every time a
// Link is added, if the tracker has not yet found a FIB entry for the
// default prefix, it retries."
func (t *Tracker) TryInit(family fib.Family) {
	s := &t.states[family]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracking {
		return
	}
	found, adjacencies := t.finder.FindDefaultRouteEntry(family)
	if !found {
		return
	}
	s.tracking = true
	t.setLocked(s, adjacencies)
	core.LogInfo("DefaultRouteTracker", "now tracking default route for family=", family)
}

// OnBackWalk re-enumerates the adjacencies reachable via the default route
// for family, replacing the previous set.
func (t *Tracker) OnBackWalk(family fib.Family, adjacencies []fib.Adj) {
	s := &t.states[family]
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracking {
		return
	}
	t.setLocked(s, adjacencies)
}

func (t *Tracker) setLocked(s *state, adjacencies []fib.Adj) {
	next := make(map[fib.Adj]struct{}, len(adjacencies))
	for _, a := range adjacencies {
		next[a] = struct{}{}
	}
	s.set = next
}

// IsDefaultRouteAdjacency reports whether adj is currently reachable via
// family's default route, in O(1).
func (t *Tracker) IsDefaultRouteAdjacency(adj fib.Adj, family fib.Family) bool {
	s := &t.states[family]
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.tracking {
		return false
	}
	_, ok := s.set[adj]
	return ok
}

// IsTracking reports whether the tracker has found the default-route FIB
// entry for family yet.
func (t *Tracker) IsTracking(family fib.Family) bool {
	s := &t.states[family]
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracking
}

// Adjacencies returns a snapshot of the adjacencies currently reachable via
// family's default route, for spec §6's "dump default-route adjacencies"
// introspection operation.
func (t *Tracker) Adjacencies(family fib.Family) []fib.Adj {
	s := &t.states[family]
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]fib.Adj, 0, len(s.set))
	for adj := range s.set {
		out = append(out, adj)
	}
	return out
}
