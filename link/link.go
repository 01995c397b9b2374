// Package link implements the Link Registry: the set of labeled transmit
// links, each tracking its own forwarding descriptor and reachability state
// via routing-layer back-walks (spec §4.2). Grounded on the teacher's
// face/table.go Table (sync.Map-keyed registry, atomic id, logged
// mutations), generalized from an auto-incrementing FaceID to an
// operator-supplied interface id, per spec §3's "at most one Link per
// interface_id" invariant.
package link

import (
	"sync"
	"sync/atomic"

	"github.com/nextlink/abf/core"
	"github.com/nextlink/abf/fib"
)

// Label is a small integer the operator assigns to a transmit link.
type Label uint8

// LabelInvalid is the sentinel "no label" value (spec §3).
const LabelInvalid Label = 255

// MaxLabel is the largest assignable label (spec §3, labels in [0,254]).
const MaxLabel Label = 254

// State is the Link state machine (spec §4.8):
// Absent -> Pending -> Reachable <-> Unreachable -> Absent.
type State int

const (
	StateAbsent State = iota
	StatePending
	StateReachable
	StateUnreachable
)

// PathList is the narrow interface the Link Registry consumes from the
// routing subsystem: resolve the link's next hop to a current forwarding
// descriptor, and report whether it's reachable (ARP/ND resolved) or
// incomplete. Spec §9 calls this out explicitly: "a registration handle
// returned by the routing subsystem plus a callback closure, avoiding
// embedded intrusive nodes."
type PathList interface {
	Resolve() (dpo fib.DPO, reachable bool)
}

// Link is the engine's record for one labeled transmit interface.
type Link struct {
	InterfaceID uint32
	Label       Label
	Family      fib.Family
	Path        PathList

	state     atomic.Int32 // State
	cachedDPO atomicDPO

	lossPct atomic.Uint32 // 0-100, administratively-down sentinel at 100

	// Per-label selection counters for introspection (spec §6): hits/misses
	// are label-resolution attempts intersected against a FIB result;
	// enforced_hits/enforced_misses are attempts made under the
	// default-route bypass rule (spec §4.6's is_default_route branch).
	hits           atomic.Uint64
	misses         atomic.Uint64
	enforcedHits   atomic.Uint64
	enforcedMisses atomic.Uint64
}

// Hits returns the count of successful non-default-route label resolutions.
func (l *Link) Hits() uint64 { return l.hits.Load() }

// Misses returns the count of failed non-default-route label resolutions.
func (l *Link) Misses() uint64 { return l.misses.Load() }

// EnforcedHits returns the count of successful default-route-bypass
// resolutions.
func (l *Link) EnforcedHits() uint64 { return l.enforcedHits.Load() }

// EnforcedMisses returns the count of failed default-route-bypass
// resolutions.
func (l *Link) EnforcedMisses() uint64 { return l.enforcedMisses.Load() }

func (l *Link) setState(s State) { l.state.Store(int32(s)) }

// State returns the link's current reachability state.
func (l *Link) State() State { return State(l.state.Load()) }

// CachedDPO returns the last-resolved forwarding descriptor.
func (l *Link) CachedDPO() fib.DPO { return l.cachedDPO.load() }

// atomicDPO stores a fib.DPO behind an atomic.Value-shaped word pair; DPO is
// two small fields so a mutex-free struct copy via atomic.Pointer keeps the
// read side lock-free, matching spec §5's "single-word stores" discipline.
type atomicDPO struct {
	p atomic.Pointer[fib.DPO]
}

func (a *atomicDPO) store(d fib.DPO) { a.p.Store(&d) }
func (a *atomicDPO) load() fib.DPO {
	p := a.p.Load()
	if p == nil {
		return fib.DPO{AdjIndex: fib.AdjInvalid}
	}
	return *p
}

// Registry is the Link Registry: the authoritative adjacency->label mapping
// plus the pool of Links, read by the datapath without locks and mutated by
// the control plane under mu.
type Registry struct {
	mu sync.Mutex

	links sync.Map // interfaceID uint32 -> *Link

	labelIdx *labelIndex
	adj      *AdjacencyLabelMap
}

// New creates a Link Registry sized for maxAdjacency adjacencies.
func New(maxAdjacency int) *Registry {
	return &Registry{
		labelIdx: newLabelIndex(),
		adj:      NewAdjacencyLabelMap(maxAdjacency),
	}
}

// Adjacency exposes the registry's admin/reachable adjacency->label maps
// for the Policy Decision Module.
func (r *Registry) Adjacency() *AdjacencyLabelMap { return r.adj }

// LinkAdd registers a new labeled transmit link (spec §4.2).
func (r *Registry) LinkAdd(interfaceID uint32, label Label, family fib.Family, path PathList) error {
	if label > MaxLabel {
		return core.ErrLabelOutOfRange
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links.Load(interfaceID); exists {
		return core.ErrInterfaceExists
	}

	l := &Link{InterfaceID: interfaceID, Label: label, Family: family, Path: path}
	l.setState(StatePending)

	dpo, reachable := path.Resolve()
	if dpo.IsValid() && int(dpo.AdjIndex) > r.adj.max {
		return core.ErrAdjacencyTooLarge
	}
	l.cachedDPO.store(dpo)
	if dpo.IsValid() && int(dpo.AdjIndex) <= r.adj.max {
		r.adj.setAdmin(dpo.AdjIndex, label)
		if reachable {
			l.setState(StateReachable)
			r.adj.setReachable(dpo.AdjIndex, label)
		} else {
			r.adj.setReachable(dpo.AdjIndex, LabelInvalid)
		}
	}

	r.links.Store(interfaceID, l)
	r.labelIdx.set(label, interfaceID)

	core.LogInfo("LinkRegistry", "added interface=", interfaceID, " label=", label, " family=", family)
	return nil
}

// LinkDel removes a labeled link. Idempotent on an unknown interface id
// (spec §4.2). The link is marked Absent *before* any other mutation so an
// in-flight datapath read never forwards onto a stale adjacency (spec §8
// property 6 / S6).
func (r *Registry) LinkDel(interfaceID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.links.Load(interfaceID)
	if !ok {
		return
	}
	l := v.(*Link)

	l.setState(StateAbsent) // sentinel first
	dpo := l.cachedDPO.load()
	if dpo.IsValid() && int(dpo.AdjIndex) <= r.adj.max {
		r.adj.setReachable(dpo.AdjIndex, LabelInvalid)
		r.adj.setAdmin(dpo.AdjIndex, LabelInvalid)
	}
	r.labelIdx.del(l.Label)
	r.links.Delete(interfaceID)

	core.LogInfo("LinkRegistry", "deleted interface=", interfaceID)
}

// OnInterfaceDeleted tears down the Link registered against interfaceID
// when the underlying interface itself disappears from the router, rather
// than via an explicit link_del (spec.md's supplemental fwabf_links.c
// behavior: "un-registers a link automatically when its underlying
// interface is deleted"). Whatever owns interface lifecycle invokes this;
// interface lifecycle itself stays out of scope.
func (r *Registry) OnInterfaceDeleted(interfaceID uint32) {
	r.LinkDel(interfaceID)
}

// OnBackWalk re-reads the Link's forwarding descriptor after a routing
// change and republishes the adjacency maps (spec §4.2 "Reachability").
// Invoked by whatever owns the routing back-walk dispatch (simulated by
// tests and by quality.Tracker on administrative-down).
func (r *Registry) OnBackWalk(interfaceID uint32) {
	v, ok := r.links.Load(interfaceID)
	if !ok {
		return
	}
	l := v.(*Link)
	if l.State() == StateAbsent {
		return
	}

	dpo, pathReachable := l.Path.Resolve()
	l.cachedDPO.store(dpo)

	administrativelyDown := l.lossPct.Load() >= 100
	reachable := pathReachable && !administrativelyDown

	if !dpo.IsValid() || int(dpo.AdjIndex) > r.adj.max {
		l.setState(StateUnreachable)
		return
	}

	r.adj.setAdmin(dpo.AdjIndex, l.Label)
	if reachable {
		l.setState(StateReachable)
		r.adj.setReachable(dpo.AdjIndex, l.Label)
	} else {
		l.setState(StateUnreachable)
		r.adj.setReachable(dpo.AdjIndex, LabelInvalid)
	}
}

// SetLoss records the administratively-reported loss percentage for a link
// (quality.Tracker's collaborator hook). loss==100 marks the link
// administratively down for policy purposes: only the reachable map is
// cleared, per the Open Question decision in DESIGN.md.
func (r *Registry) SetLoss(interfaceID uint32, lossPct uint32) {
	v, ok := r.links.Load(interfaceID)
	if !ok {
		return
	}
	l := v.(*Link)
	l.lossPct.Store(lossPct)
	r.OnBackWalk(interfaceID)
}

// RecordSelection records the outcome of one label-selection attempt
// against label's link, for the per-label introspection counters spec §6
// asks "list links" to report. enforced distinguishes a default-route
// bypass attempt from an ordinary FIB-intersected one.
func (r *Registry) RecordSelection(label Label, enforced, hit bool) {
	ifID, ok := r.labelIdx.get(label)
	if !ok {
		return
	}
	l := r.GetByInterface(ifID)
	if l == nil {
		return
	}
	switch {
	case enforced && hit:
		l.enforcedHits.Add(1)
	case enforced && !hit:
		l.enforcedMisses.Add(1)
	case hit:
		l.hits.Add(1)
	default:
		l.misses.Add(1)
	}
}

// Range calls f for every registered Link, for introspection.
func (r *Registry) Range(f func(l *Link)) {
	r.links.Range(func(_, v any) bool {
		f(v.(*Link))
		return true
	})
}

// GetByInterface returns the Link for interfaceID, or nil.
func (r *Registry) GetByInterface(interfaceID uint32) *Link {
	v, ok := r.links.Load(interfaceID)
	if !ok {
		return nil
	}
	return v.(*Link)
}

// GetByLabel returns the first reachable link bearing label, or nil. Used
// by the default-route override path (spec §4.6).
func (r *Registry) GetByLabel(label Label) *Link {
	ifID, ok := r.labelIdx.get(label)
	if !ok {
		return nil
	}
	l := r.GetByInterface(ifID)
	if l == nil || l.State() != StateReachable {
		return nil
	}
	return l
}

// InterfaceForLabel returns the interface id label was registered against,
// or false if no link currently bears that label. Used by the quality
// package's DSCP-driven local sub-selection pass (SPEC_FULL.md §4).
func (r *Registry) InterfaceForLabel(label Label) (uint32, bool) {
	return r.labelIdx.get(label)
}

// Resolve implements the label->DPO rule's final step: given a label
// already known to map to a reachable adjacency, return the link's cached
// DPO. Used for the default-route override (spec §4.6).
func (r *Registry) Resolve(label Label) (fib.DPO, bool) {
	l := r.GetByLabel(label)
	if l == nil || l.State() != StateReachable {
		return fib.DPO{AdjIndex: fib.AdjInvalid}, false
	}
	return l.CachedDPO(), true
}

// IsLabeled reports whether any bucket of lb carries an administratively
// registered label. Combined with defroute.Tracker's default-route check by
// the caller (decision.IsLabeledOrDefaultRoute) to implement spec §4.2's
// is_labeled_or_default_route.
func (r *Registry) IsLabeled(lb fib.LoadBalance) bool {
	for _, b := range lb.Buckets {
		if !b.IsValid() || int(b.AdjIndex) > r.adj.max {
			continue
		}
		if r.adj.Admin(b.AdjIndex) != LabelInvalid {
			return true
		}
	}
	return false
}
