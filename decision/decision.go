// Package decision implements the Policy Decision Module: for a matched
// policy and a FIB lookup result, pick the label to forward through (spec
// §4.6), the hottest routine in the engine — invoked once per packet that
// survives ACL matching. Grounded on the teacher's fw/bestroute.go strategy
// (pick the lowest-cost nexthop from a FIB entry's next-hop list, falling
// through on failure), generalized to the nested ordered/random group
// selection and random-probe-then-ordered-fallback semantics of spec §4.6.
package decision

import (
	"github.com/nextlink/abf/defroute"
	"github.com/nextlink/abf/fib"
	"github.com/nextlink/abf/link"
	"github.com/nextlink/abf/policy"
	"github.com/nextlink/abf/quality"
)

// Outcome is the result handed back to the datapath node: either forward
// via DPO, or one of the two fallback behaviors (spec §4.6 step 5/6).
type Outcome struct {
	DPO           fib.DPO
	Forward       bool
	FellBackToFIB bool // used the original FIB result instead of a label
	Dropped       bool
}

// Engine composes the Link Registry, Default-Route Tracker and Policy Store
// to resolve a matched policy's action into a forwarding decision. It holds
// no packet-rate state of its own: every call is self-contained given a
// flow hash (spec §5, "lock-free reads on the hot path").
type Engine struct {
	links *link.Registry
	defrt *defroute.Tracker
	pols  *policy.Store
	qual  *quality.Tracker
}

// New builds a Policy Decision Module over the given collaborators.
func New(links *link.Registry, defrt *defroute.Tracker, pols *policy.Store) *Engine {
	return &Engine{links: links, defrt: defrt, pols: pols}
}

// SetQuality wires the Quality Tracker into the decision engine, enabling
// the fwabf_locals.c local sub-selection pass (SPEC_FULL.md §4): a
// candidate label whose link fails the packet's DSCP-derived service-class
// tolerance is skipped before ever reaching the FIB-intersection step.
// Optional; a nil tracker (the default) disables the pass entirely.
func (e *Engine) SetQuality(qual *quality.Tracker) { e.qual = qual }

// tolerates reports whether label's link currently meets dscp's
// service-class tolerance. A label with no registered link, or an engine
// with no Quality Tracker wired in, is always tolerant - this pass only
// narrows candidates, it never manufactures a hit the FIB-intersection step
// wouldn't otherwise grant.
func (e *Engine) tolerates(label link.Label, dscp uint8) bool {
	if e.qual == nil {
		return true
	}
	ifID, ok := e.links.InterfaceForLabel(label)
	if !ok {
		return true
	}
	return e.qual.Tolerates(ifID, quality.ServiceClassForDSCP(dscp))
}

// IsLabeledOrDefaultRoute composes link.Registry.IsLabeled with the
// default-route membership test to implement spec §4.2's
// is_labeled_or_default_route: the datapath consults this before invoking
// the Policy Decision Module at all.
func (e *Engine) IsLabeledOrDefaultRoute(lb fib.LoadBalance, family fib.Family) bool {
	return e.links.IsLabeled(lb) || e.isDefaultRoute(lb, family)
}

// isDefaultRoute reports whether lb's result is itself a default-route
// adjacency. Per the Open Question decision in DESIGN.md, this is evaluated
// against the first resolved bucket only, matching fwabf_policy.c's
// single-path fib_entry_get_default_route_adjacency check rather than a
// scan of the full ECMP set.
func (e *Engine) isDefaultRoute(lb fib.LoadBalance, family fib.Family) bool {
	if e.defrt == nil {
		return false
	}
	first := lb.Final()
	return first.IsValid() && e.defrt.IsDefaultRouteAdjacency(first.AdjIndex, family)
}

// resolveLabel implements spec §4.6's label->DPO rule. When isDefaultRoute,
// intersection with lb is bypassed entirely and the labeled link's own DPO
// is returned directly, enforcing policy-over-routing for public-Internet
// traffic. Otherwise label is intersected against lb's buckets in declared
// order, returning the FIB's own DPO for the first bucket whose adjacency
// the reachable map maps to label — not the link's cached DPO, since the
// FIB's DPO carries the correct next-node for the graph.
func (e *Engine) resolveLabel(label link.Label, lb fib.LoadBalance, isDefaultRoute bool, dscp uint8) (fib.DPO, bool) {
	if !e.tolerates(label, dscp) {
		return fib.DPO{AdjIndex: fib.AdjInvalid}, false
	}
	dpo, ok := e.resolveLabelUncounted(label, lb, isDefaultRoute)
	e.links.RecordSelection(label, isDefaultRoute, ok)
	return dpo, ok
}

func (e *Engine) resolveLabelUncounted(label link.Label, lb fib.LoadBalance, isDefaultRoute bool) (fib.DPO, bool) {
	if isDefaultRoute {
		return e.links.Resolve(label)
	}
	adj := e.links.Adjacency()
	for _, b := range lb.Buckets {
		if b.IsValid() && adj.Reachable(b.AdjIndex) == label {
			return b, true
		}
	}
	return fib.DPO{AdjIndex: fib.AdjInvalid}, false
}

// Decide resolves p's action against flow hash h and FIB result lb, falling
// through to lb's own DPO on FallbackDefaultRoute, or a drop on
// FallbackDrop, when no label in the action resolves (spec §4.6 steps 1-6).
// When lb is a default-route result and the process-scoped default-route
// override action is active, that action is used in place of p's own.
func (e *Engine) Decide(p *policy.Policy, h uint32, lb fib.LoadBalance, family fib.Family, dscp uint8) Outcome {
	act := &p.Action
	p.Counters.Matched.Add(1)

	isDefaultRoute := e.isDefaultRoute(lb, family)
	if isDefaultRoute && e.pols != nil {
		if override, ok := e.pols.DefaultRouteAction(); ok {
			act = &override
		}
	}

	if dpo, ok := e.selectLabel(act, h, lb, isDefaultRoute, dscp); ok {
		p.Counters.Applied.Add(1)
		return Outcome{DPO: dpo, Forward: true}
	}

	p.Counters.Fallback.Add(1)
	if act.Fallback == policy.FallbackDrop {
		p.Counters.Dropped.Add(1)
		return Outcome{Dropped: true}
	}
	p.Counters.DefaultRoute.Add(1)
	return Outcome{DPO: lb.Final(), Forward: lb.Final().IsValid(), FellBackToFIB: true}
}

// selectLabel implements spec §4.6 steps 2-5: when group_selection is
// RANDOM and there is more than one group, probe the single flow-hash-picked
// group first. On a miss (or when group_selection is ORDERED), fall through
// to a plain ordered scan of every group from index 0 - never a scan rotated
// to start at the probed index, which would let the hash silently reorder an
// ORDERED action's declared group order.
func (e *Engine) selectLabel(act *policy.Action, h uint32, lb fib.LoadBalance, isDefaultRoute bool, dscp uint8) (fib.DPO, bool) {
	n := len(act.Groups)
	if n == 0 {
		return fib.DPO{AdjIndex: fib.AdjInvalid}, false
	}

	if n > 1 && act.GroupSelection == policy.SelectionRandom {
		probe := int(act.Index(h))
		if dpo, ok := e.selectFromGroup(&act.Groups[probe], h, lb, isDefaultRoute, dscp); ok {
			return dpo, true
		}
	}

	for i := 0; i < n; i++ {
		if dpo, ok := e.selectFromGroup(&act.Groups[i], h, lb, isDefaultRoute, dscp); ok {
			return dpo, true
		}
	}
	return fib.DPO{AdjIndex: fib.AdjInvalid}, false
}

// selectFromGroup implements spec §4.6 steps 3-4: link_selection ORDERED
// walks labels in declared order from index 0; RANDOM probes the single
// flow-hash-picked label first and, on a miss, falls back to the same
// declared-order walk from 0 (spec §4.6: "Groups with link_selection ==
// RANDOM still do one hash-picked probe before their ordered scan").
func (e *Engine) selectFromGroup(g *policy.Group, h uint32, lb fib.LoadBalance, isDefaultRoute bool, dscp uint8) (fib.DPO, bool) {
	n := len(g.Labels)
	if n == 0 {
		return fib.DPO{AdjIndex: fib.AdjInvalid}, false
	}

	if g.Selection == policy.SelectionRandom {
		probe := int(g.Index(h))
		if dpo, ok := e.resolveLabel(g.Labels[probe], lb, isDefaultRoute, dscp); ok {
			return dpo, true
		}
	}

	for i := 0; i < n; i++ {
		if dpo, ok := e.resolveLabel(g.Labels[i], lb, isDefaultRoute, dscp); ok {
			return dpo, true
		}
	}
	return fib.DPO{AdjIndex: fib.AdjInvalid}, false
}

// DecideDefaultRouteOverride implements spec §4.4: when the process-scoped
// default-route override action is active and the FIB result for a
// non-ACL-matched packet is itself labeled or a default-route adjacency,
// apply the override action exactly as Decide would for a matched policy.
func (e *Engine) DecideDefaultRouteOverride(h uint32, lb fib.LoadBalance, family fib.Family, dscp uint8) (Outcome, bool) {
	act, ok := e.pols.DefaultRouteAction()
	if !ok {
		return Outcome{}, false
	}
	if !e.IsLabeledOrDefaultRoute(lb, family) {
		return Outcome{}, false
	}
	synthetic := &policy.Policy{Action: act}
	return e.Decide(synthetic, h, lb, family, dscp), true
}
