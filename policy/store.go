package policy

import (
	"sync/atomic"

	"github.com/cornelk/hashmap"

	"github.com/nextlink/abf/core"
)

// Store is the Policy Store: lock-free-read, id-keyed registry of policies,
// plus the optional process-scoped default-route override action (spec
// §4.4).
type Store struct {
	policies *hashmap.Map[uint32, *Policy]

	// defaultRouteAction is published the same way attach.Store publishes its
	// attachment list: a fresh *Action swapped in atomically, so datapath
	// workers reading it per packet never observe a torn Action (spec §5 -
	// Action's Groups slice header is multi-word, so a plain struct field
	// here would be a data race). nil means no override is active.
	defaultRouteAction atomic.Pointer[Action]
}

// New creates an empty Policy Store.
func New() *Store {
	return &Store{policies: hashmap.New[uint32, *Policy]()}
}

// Add registers a new policy (spec §4.4 policy_add).
func (s *Store) Add(policyID, aclID uint32, action Action) error {
	if _, exists := s.policies.Get(policyID); exists {
		return core.ErrExists
	}
	p := &Policy{PolicyID: policyID, ACLID: aclID, Action: action}
	s.policies.Set(policyID, p)
	core.LogInfo("PolicyStore", "added policy=", policyID, " acl=", aclID)
	return nil
}

// Delete removes policyID, failing with ErrInUse while any attachment
// still references it, and ErrNotFound if it doesn't exist (spec §4.4).
func (s *Store) Delete(policyID uint32) error {
	p, ok := s.policies.Get(policyID)
	if !ok {
		return core.ErrNotFound
	}
	if p.RefCount.Load() > 0 {
		return core.ErrInUse
	}
	s.policies.Del(policyID)
	core.LogInfo("PolicyStore", "deleted policy=", policyID)
	return nil
}

// Get returns the policy for policyID, or nil.
func (s *Store) Get(policyID uint32) *Policy {
	p, ok := s.policies.Get(policyID)
	if !ok {
		return nil
	}
	return p
}

// List returns all policies, for introspection.
func (s *Store) List() []*Policy {
	out := make([]*Policy, 0)
	s.policies.Range(func(_ uint32, p *Policy) bool {
		out = append(out, p)
		return true
	})
	return out
}

// SetDefaultRouteAction installs the process-scoped override action (spec
// §4.4): when a packet's FIB result is a default-route adjacency and this
// is active, it overrides the per-policy action.
func (s *Store) SetDefaultRouteAction(action Action) {
	s.defaultRouteAction.Store(&action)
}

// ClearDefaultRouteAction removes the override.
func (s *Store) ClearDefaultRouteAction() {
	s.defaultRouteAction.Store(nil)
}

// DefaultRouteAction returns the override action and whether it's active.
func (s *Store) DefaultRouteAction() (Action, bool) {
	act := s.defaultRouteAction.Load()
	if act == nil {
		return Action{}, false
	}
	return *act, true
}

// IncRef/DecRef are used by attach.Store to maintain Policy.RefCount.
func (s *Store) IncRef(policyID uint32) {
	if p, ok := s.policies.Get(policyID); ok {
		p.RefCount.Add(1)
	}
}

func (s *Store) DecRef(policyID uint32) {
	if p, ok := s.policies.Get(policyID); ok {
		p.RefCount.Add(-1)
	}
}
