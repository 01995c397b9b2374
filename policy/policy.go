// Package policy implements the Policy Store: CRUD for policy objects
// (ACL-id, action) and the pre-computed selection constants consumed by the
// Policy Decision Module (spec §3/§4.4). Grounded on the teacher's
// dispatch/face.go registry shape, generalized to a lock-free
// cornelk/hashmap store since policies are read by every datapath worker on
// every packet and written only by the control plane.
package policy

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/nextlink/abf/fib"
	"github.com/nextlink/abf/link"
)

// Fallback is the behavior when no label resolves to a DPO (spec §3).
type Fallback int

const (
	FallbackDefaultRoute Fallback = iota
	FallbackDrop
)

func (f Fallback) String() string {
	if f == FallbackDrop {
		return "drop"
	}
	return "default-route"
}

// Selection is the group/label selection algorithm (spec §3).
type Selection int

const (
	SelectionOrdered Selection = iota
	SelectionRandom
)

func (s Selection) String() string {
	if s == SelectionRandom {
		return "random"
	}
	return "ordered"
}

// Group is one nested selection group of labels (spec §3).
type Group struct {
	Selection Selection
	Labels    []link.Label

	nMinus1 uint32
	mask    uint32
}

func newGroup(sel Selection, labels []link.Label) Group {
	g := Group{Selection: sel, Labels: append([]link.Label(nil), labels...)}
	g.nMinus1, g.mask = fib.Pow2Mask(len(g.Labels))
	return g
}

// Index maps a flow hash to a label index within the group using the
// pre-computed mask/n-1 (spec §3/§9).
func (g *Group) Index(h uint32) uint32 { return fib.FlowHashIndex(h, g.nMinus1, g.mask) }

func (g *Group) String() string {
	parts := make([]string, len(g.Labels))
	for i, l := range g.Labels {
		parts[i] = strconv.Itoa(int(l))
	}
	prefix := ""
	if g.Selection == SelectionRandom {
		prefix = "random "
	}
	return prefix + "labels " + strings.Join(parts, ",")
}

// Action is the PolicyAction: fallback behavior plus an ordered/random list
// of groups (spec §3).
type Action struct {
	Fallback        Fallback
	GroupSelection  Selection
	Groups          []Group

	nMinus1 uint32
	mask    uint32
}

// NewAction builds an Action, pre-computing nMinus1/mask for the action
// itself and for every group (spec §3: "Pre-computed at construction").
func NewAction(fallback Fallback, groupSelection Selection, groups [][]link.Label, groupSelections []Selection) Action {
	a := Action{Fallback: fallback, GroupSelection: groupSelection}
	a.Groups = make([]Group, len(groups))
	for i, labels := range groups {
		sel := SelectionOrdered
		if groupSelections != nil && i < len(groupSelections) {
			sel = groupSelections[i]
		}
		a.Groups[i] = newGroup(sel, labels)
	}
	a.nMinus1, a.mask = fib.Pow2Mask(len(a.Groups))
	return a
}

// Index maps a flow hash to a group index using the pre-computed mask/n-1.
func (a *Action) Index(h uint32) uint32 { return fib.FlowHashIndex(h, a.nMinus1, a.mask) }

// String renders the action grammar per spec §6.
func (a *Action) String() string {
	var b strings.Builder
	if len(a.Groups) > 1 && a.GroupSelection == SelectionRandom {
		b.WriteString("select_group random ")
	}
	if a.Fallback == FallbackDrop {
		b.WriteString("fallback drop ")
	}
	for i, g := range a.Groups {
		if i > 0 {
			b.WriteString(" ")
		}
		if len(a.Groups) > 1 {
			b.WriteString("group " + strconv.Itoa(i) + " ")
		}
		b.WriteString(g.String())
	}
	return strings.TrimSpace(b.String())
}

// Counters are the per-policy statistical counters (spec §4.6). Workers
// increment them with atomic adds and take no lock (spec §5).
type Counters struct {
	Matched      atomic.Uint64
	Applied      atomic.Uint64
	Fallback     atomic.Uint64
	Dropped      atomic.Uint64
	DefaultRoute atomic.Uint64
}

// Policy is an (ACL, Action) pair prescribing link selection for matching
// packets (spec §3).
type Policy struct {
	PolicyID uint32
	ACLID    uint32
	Action   Action

	RefCount atomic.Int32
	Counters Counters
}
