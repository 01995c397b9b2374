package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlink/abf/attach"
	"github.com/nextlink/abf/acl"
	"github.com/nextlink/abf/defroute"
	"github.com/nextlink/abf/fib"
	"github.com/nextlink/abf/link"
	"github.com/nextlink/abf/policy"
	"github.com/nextlink/abf/quality"
)

type noFinder struct{}

func (noFinder) FindDefaultRouteEntry(fib.Family) (bool, []fib.Adj) { return false, nil }

func newAPI() *API {
	links := link.New(1024)
	pols := policy.New()
	attached := attach.New(pols, func(aclID uint32) []acl.Rule { return nil })
	defrt := defroute.New(noFinder{})
	qual := quality.New(links)
	return New(links, pols, attached, defrt, qual)
}

func TestLinkAddAndDel(t *testing.T) {
	a := newAPI()
	path := link.NewUDPPathList(nil, 5, "tun0")
	path.SetResolved(true)
	assert.Equal(t, CodeOK, a.LinkAdd(1, 10, fib.FamilyV4, path))
	assert.Equal(t, CodeExists, a.LinkAdd(1, 11, fib.FamilyV4, path))
	assert.Equal(t, CodeOK, a.LinkDel(1))
}

func TestLinkAddOutOfRangeLabel(t *testing.T) {
	a := newAPI()
	path := link.NewUDPPathList(nil, 5, "tun0")
	assert.Equal(t, CodeInvalidArgument, a.LinkAdd(1, 255, fib.FamilyV4, path))
}

func TestPolicyLifecycle(t *testing.T) {
	a := newAPI()
	act := policy.NewAction(policy.FallbackDrop, policy.SelectionOrdered, [][]link.Label{{10}}, nil)
	require.Equal(t, CodeOK, a.PolicyAdd(1, 100, act))
	assert.Equal(t, CodeExists, a.PolicyAdd(1, 200, act))

	path := link.NewUDPPathList(nil, 5, "tun0")
	require.Equal(t, CodeOK, a.LinkAdd(1, 10, fib.FamilyV4, path))
	require.Equal(t, CodeOK, a.Attach(fib.FamilyV4, 1, 1, 0))

	assert.Equal(t, CodeInUse, a.PolicyDelete(1))
	assert.Equal(t, CodeOK, a.Detach(fib.FamilyV4, 1, 1))
	assert.Equal(t, CodeOK, a.PolicyDelete(1))
}

func TestAttachUnknownPolicyIsNotFound(t *testing.T) {
	a := newAPI()
	assert.Equal(t, CodeNotFound, a.Attach(fib.FamilyV4, 99, 1, 0))
}

func TestDefaultRouteActionSetAndClear(t *testing.T) {
	a := newAPI()
	act := policy.NewAction(policy.FallbackDrop, policy.SelectionOrdered, [][]link.Label{{10}}, nil)
	assert.Equal(t, CodeOK, a.DefaultRouteActionSet(act))
	assert.Equal(t, CodeOK, a.DefaultRouteActionClear())
}

func TestQualitySetDrivesLinkDown(t *testing.T) {
	a := newAPI()
	path := link.NewUDPPathList(nil, 5, "tun0")
	path.SetResolved(true)
	require.Equal(t, CodeOK, a.LinkAdd(1, 10, fib.FamilyV4, path))

	assert.Equal(t, CodeOK, a.QualitySet(1, quality.Measurement{LossPct: 100}))
	assert.Equal(t, link.LabelInvalid, a.Links.Adjacency().Reachable(5))
}

func TestListLinksReportsCounters(t *testing.T) {
	a := newAPI()
	path := link.NewUDPPathList(nil, 5, "tun0")
	path.SetResolved(true)
	require.Equal(t, CodeOK, a.LinkAdd(1, 10, fib.FamilyV4, path))

	links := a.ListLinks()
	require.Len(t, links, 1)
	assert.Equal(t, link.Label(10), links[0].Label)
	assert.Equal(t, uint64(0), links[0].Hits)
}
