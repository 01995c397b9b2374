// Package control implements the engine's control-plane API (spec §6):
// the verb-like CRUD operations a CLI, wire protocol, or persisted-config
// loader drives, stripped of any encoding — both are out of scope per spec
// §1. Grounded on the teacher's mgmt/fib.go verb-dispatch shape (a fixed
// set of named operations, each returning a response code), expressed
// here as plain Go methods returning a control.Code instead of a decoded
// ControlParameters/ControlResponse pair.
package control

import (
	"errors"

	"github.com/nextlink/abf/attach"
	"github.com/nextlink/abf/core"
	"github.com/nextlink/abf/defroute"
	"github.com/nextlink/abf/fib"
	"github.com/nextlink/abf/link"
	"github.com/nextlink/abf/mgmt"
	"github.com/nextlink/abf/policy"
	"github.com/nextlink/abf/quality"
)

// Code is the control-plane response code (spec §6).
type Code int

const (
	CodeOK Code = iota
	CodeExists
	CodeNotFound
	CodeInUse
	CodeInvalidArgument
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeExists:
		return "EXISTS"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeInUse:
		return "IN_USE"
	default:
		return "INVALID_ARGUMENT"
	}
}

// codeFor translates a core sentinel error into a Code, the boundary where
// the engine's internal errors become the externally visible ones.
func codeFor(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, core.ErrExists), errors.Is(err, core.ErrInterfaceExists):
		return CodeExists
	case errors.Is(err, core.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, core.ErrInUse):
		return CodeInUse
	default:
		return CodeInvalidArgument
	}
}

// API is the engine's control-plane surface, composing every store the
// operations of spec §6 touch.
type API struct {
	Links        *link.Registry
	Policies     *policy.Store
	Attachments  *attach.Store
	DefaultRoute *defroute.Tracker
	Quality      *quality.Tracker

	// Events is optional; when set, link reachability and quality
	// transitions are pushed to every mgmt subscriber.
	Events *mgmt.Listener
}

// New builds a control-plane API over the given stores.
func New(links *link.Registry, pols *policy.Store, attached *attach.Store, defrt *defroute.Tracker, qual *quality.Tracker) *API {
	return &API{Links: links, Policies: pols, Attachments: attached, DefaultRoute: defrt, Quality: qual}
}

// LinkAdd implements spec §6's link_add.
func (a *API) LinkAdd(interfaceID uint32, label link.Label, family fib.Family, path link.PathList) Code {
	err := a.Links.LinkAdd(interfaceID, label, family, path)
	if err != nil {
		return codeFor(err)
	}
	a.DefaultRoute.TryInit(family)
	if l := a.Links.GetByInterface(interfaceID); l != nil && a.Events != nil {
		a.Events.BroadcastReachability(interfaceID, label, l.State())
	}
	return CodeOK
}

// LinkDel implements spec §6's link_del. Idempotent: always OK.
func (a *API) LinkDel(interfaceID uint32) Code {
	l := a.Links.GetByInterface(interfaceID)
	a.Links.LinkDel(interfaceID)
	if l != nil && a.Events != nil {
		a.Events.BroadcastReachability(interfaceID, l.Label, link.StateAbsent)
	}
	return CodeOK
}

// PolicyAdd implements spec §6's policy_add.
func (a *API) PolicyAdd(policyID, aclID uint32, action policy.Action) Code {
	return codeFor(a.Policies.Add(policyID, aclID, action))
}

// PolicyDelete implements spec §6's policy_delete.
func (a *API) PolicyDelete(policyID uint32) Code {
	return codeFor(a.Policies.Delete(policyID))
}

// Attach implements spec §6's attach.
func (a *API) Attach(family fib.Family, policyID, rxInterfaceID, priority uint32) Code {
	return codeFor(a.Attachments.Attach(policyID, rxInterfaceID, family, priority))
}

// Detach implements spec §6's detach.
func (a *API) Detach(family fib.Family, policyID, rxInterfaceID uint32) Code {
	return codeFor(a.Attachments.Detach(policyID, rxInterfaceID, family))
}

// Reprioritize is a supplemental operation (SPEC_FULL.md §4) letting an
// operator change an attachment's priority in place.
func (a *API) Reprioritize(family fib.Family, policyID, rxInterfaceID, newPriority uint32) Code {
	return codeFor(a.Attachments.Reprioritize(policyID, rxInterfaceID, family, newPriority))
}

// DefaultRouteActionSet implements spec §6's default_route_action_set.
func (a *API) DefaultRouteActionSet(action policy.Action) Code {
	a.Policies.SetDefaultRouteAction(action)
	return CodeOK
}

// DefaultRouteActionClear implements spec §6's default_route_action_clear.
func (a *API) DefaultRouteActionClear() Code {
	a.Policies.ClearDefaultRouteAction()
	return CodeOK
}

// QualitySet implements spec §6's quality_set.
func (a *API) QualitySet(interfaceID uint32, m quality.Measurement) Code {
	a.Quality.SetQuality(interfaceID, m)
	if l := a.Links.GetByInterface(interfaceID); l != nil && a.Events != nil {
		a.Events.BroadcastQuality(interfaceID, l.Label, m.LossPct, m.DelayMs, m.JitterMs)
	}
	return CodeOK
}

// LinkCounters are the per-label hit/miss introspection counters spec §6
// asks list-links to report.
type LinkCounters struct {
	Label          link.Label
	InterfaceID    uint32
	State          link.State
	Hits           uint64
	Misses         uint64
	EnforcedHits   uint64
	EnforcedMisses uint64
}

// ListLinks implements spec §6's introspection "list links with counters
// {hits, misses, enforced_hits, enforced_misses} per label".
func (a *API) ListLinks() []LinkCounters {
	var out []LinkCounters
	a.Links.Range(func(l *link.Link) {
		out = append(out, LinkCounters{
			Label:          l.Label,
			InterfaceID:    l.InterfaceID,
			State:          l.State(),
			Hits:           l.Hits(),
			Misses:         l.Misses(),
			EnforcedHits:   l.EnforcedHits(),
			EnforcedMisses: l.EnforcedMisses(),
		})
	})
	return out
}

// ListPolicies implements spec §6's introspection "list policies".
func (a *API) ListPolicies() []*policy.Policy { return a.Policies.List() }

// ListAttachments implements spec §6's introspection "list attachments"
// for a given (interface, family).
func (a *API) ListAttachments(rxInterfaceID uint32, family fib.Family) []*attach.Attachment {
	return a.Attachments.List(rxInterfaceID, family)
}

// DumpDefaultRouteAdjacencies implements spec §6's introspection "dump
// default-route adjacencies" for family.
func (a *API) DumpDefaultRouteAdjacencies(family fib.Family) []fib.Adj {
	return a.DefaultRoute.Adjacencies(family)
}
