// Package datapath implements the Datapath Node: the per-packet pipeline
// that composes the FIB, the ACL matcher, the Attachment Store and the
// Policy Decision Module into a single forwarding decision (spec §4.7).
// Grounded on the teacher's fw/thread.go Thread.Run (a select-loop pulling
// frames off a channel and running a fixed per-packet pipeline function),
// generalized from NDN Interest/Data processing to IP packet forwarding.
package datapath

import (
	"github.com/zjkmxy/stealthpool"

	"github.com/nextlink/abf/acl"
	"github.com/nextlink/abf/attach"
	"github.com/nextlink/abf/core"
	"github.com/nextlink/abf/decision"
	"github.com/nextlink/abf/fib"
	"github.com/nextlink/abf/localaddr"
	"github.com/nextlink/abf/policy"
)

const (
	maxPoolBlockCnt  = 1000
	maxPoolBlockSize = 9000
)

// Result is what the Datapath Node hands to the graph dispatcher: the
// chosen next node and adjacency, or a drop.
type Result struct {
	NextNode string
	AdjIndex fib.Adj
	Dropped  bool
	Local    bool // bypassed policy: packet is locally destined
}

// Enqueuer is the narrow graph-dispatcher collaborator the Datapath Node
// hands its forwarding decision to (out of scope per spec §1).
type Enqueuer interface {
	Enqueue(nextNode string, adjIndex fib.Adj, frame []byte)
}

// Node is the Datapath Node for one family (v4 or v6).
type Node struct {
	family   fib.Family
	fibTable *fib.Table
	attached *attach.Store
	policies *policy.Store
	decision *decision.Engine
	local    *localaddr.Filter
	enqueuer Enqueuer

	pool *stealthpool.Pool

	counters Counters
}

// Counters are per-node statistical counters for introspection.
type Counters struct {
	Received   uint64
	LocalBypass uint64
	ACLMatched uint64
	PolicyUsed uint64
	FIBUsed    uint64
	Dropped    uint64
}

// New creates a Datapath Node for family, allocating its frame-batch buffer
// pool exactly as the teacher's NDNLPLinkService.Run does for its own
// per-batch scratch space.
func New(family fib.Family, fibTable *fib.Table, attached *attach.Store, policies *policy.Store, eng *decision.Engine, local *localaddr.Filter, enqueuer Enqueuer) (*Node, error) {
	pool, err := stealthpool.New(maxPoolBlockCnt, stealthpool.WithBlockSize(maxPoolBlockSize))
	if err != nil {
		return nil, err
	}
	return &Node{
		family:   family,
		fibTable: fibTable,
		attached: attached,
		policies: policies,
		decision: eng,
		local:    local,
		enqueuer: enqueuer,
		pool:     pool,
	}, nil
}

// Close releases the node's buffer pool.
func (n *Node) Close() { n.pool.Close() }

// ProcessFrame runs the per-packet pipeline of spec §4.7 for one frame
// received on rxInterface, and enqueues the result to the configured
// Enqueuer.
func (n *Node) ProcessFrame(rxInterface uint32, frame []byte) Result {
	n.counters.Received++

	tuple, ok := acl.Fill5Tuple(frame)
	if !ok {
		n.counters.Dropped++
		return Result{Dropped: true}
	}

	if n.bypassForLocal(tuple) {
		n.counters.LocalBypass++
		return Result{Local: true}
	}

	lb := n.lookupFIB(tuple)

	result := n.decideAndForward(rxInterface, tuple, lb)
	if n.enqueuer != nil && !result.Dropped {
		n.enqueuer.Enqueue(result.NextNode, result.AdjIndex, frame)
	}
	return result
}

func (n *Node) bypassForLocal(t fib.FiveTuple) bool {
	if n.local == nil {
		return false
	}
	if t.IsV6 {
		return n.local.Contains6(t.DstAddr)
	}
	var addr4 [4]byte
	copy(addr4[:], t.DstAddr[:4])
	return n.local.Contains4(addr4)
}

func (n *Node) lookupFIB(t fib.FiveTuple) fib.LoadBalance {
	if t.IsV6 {
		return n.fibTable.LookupV6(t.DstAddr)
	}
	var addr4 [4]byte
	copy(addr4[:], t.DstAddr[:4])
	return n.fibTable.LookupV4(addr4)
}

// decideAndForward implements spec §4.7 steps 2-4: ACL match against the
// per-interface attachment list, Policy Decision Module on match, standard
// FIB forwarding (single bucket, or flow-hashed ECMP bucket) otherwise.
func (n *Node) decideAndForward(rxInterface uint32, t fib.FiveTuple, lb fib.LoadBalance) Result {
	h := fib.FlowHash(t)

	ctx := n.attached.ACLContext(rxInterface, n.family)
	attachments := n.attached.List(rxInterface, n.family)

	if ctx != nil {
		if pos := ctx.Match5Tuple(t); pos >= 0 && pos < len(attachments) {
			n.counters.ACLMatched++
			att := attachments[pos]
			pol := n.policyFor(att)
			if pol != nil {
				out := n.decision.Decide(pol, h, lb, n.family, t.DSCP)
				if out.Dropped {
					n.counters.Dropped++
					core.LogTrace("DatapathNode", "policy=", pol.PolicyID, " dropped")
					return Result{Dropped: true}
				}
				n.counters.PolicyUsed++
				return Result{NextNode: out.DPO.NextNode, AdjIndex: out.DPO.AdjIndex}
			}
		}
	}

	if out, applied := n.decision.DecideDefaultRouteOverride(h, lb, n.family, t.DSCP); applied && !out.Dropped && out.Forward {
		n.counters.PolicyUsed++
		return Result{NextNode: out.DPO.NextNode, AdjIndex: out.DPO.AdjIndex}
	}

	n.counters.FIBUsed++
	dpo := n.pickFIBBucket(lb, h)
	if !dpo.IsValid() {
		n.counters.Dropped++
		return Result{Dropped: true}
	}
	return Result{NextNode: dpo.NextNode, AdjIndex: dpo.AdjIndex}
}

// pickFIBBucket implements the standard (non-policy) FIB forwarding step:
// a single bucket is used directly; multiple ECMP buckets are spread by
// the same flow hash used for label selection (spec §4.7 step 4b).
func (n *Node) pickFIBBucket(lb fib.LoadBalance, h uint32) fib.DPO {
	switch lb.NBuckets() {
	case 0:
		return fib.DPO{AdjIndex: fib.AdjInvalid}
	case 1:
		return lb.Bucket(0)
	default:
		nMinus1, mask := fib.Pow2Mask(lb.NBuckets())
		idx := fib.FlowHashIndex(h, nMinus1, mask)
		return lb.Bucket(int(idx))
	}
}

// policyFor resolves the policy referenced by a matched Attachment.
func (n *Node) policyFor(att *attach.Attachment) *policy.Policy {
	if n.policies == nil {
		return nil
	}
	return n.policies.Get(att.PolicyID)
}
