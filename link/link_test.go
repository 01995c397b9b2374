package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlink/abf/core"
	"github.com/nextlink/abf/fib"
)

func newTestPath(adj uint32, reachable bool) *UDPPathList {
	p := NewUDPPathList(nil, adj, "ip4-rewrite")
	p.SetResolved(reachable)
	return p
}

func TestLabelOutOfRangeRejected(t *testing.T) {
	r := New(1024)
	err := r.LinkAdd(1, 255, fib.FamilyV4, newTestPath(10, true))
	assert.ErrorIs(t, err, core.ErrLabelOutOfRange)
}

func TestLinkAddPopulatesAdminMap(t *testing.T) {
	r := New(1024)
	require.NoError(t, r.LinkAdd(1, 10, fib.FamilyV4, newTestPath(5, true)))

	assert.Equal(t, Label(10), r.Adjacency().Admin(5))
	assert.Equal(t, Label(10), r.Adjacency().Reachable(5))
}

func TestLinkDelClearsAdminMap(t *testing.T) {
	r := New(1024)
	require.NoError(t, r.LinkAdd(1, 10, fib.FamilyV4, newTestPath(5, true)))
	r.LinkDel(1)

	assert.Equal(t, LabelInvalid, r.Adjacency().Admin(5))
	assert.Equal(t, LabelInvalid, r.Adjacency().Reachable(5))
	assert.Nil(t, r.GetByInterface(1))
}

func TestOnInterfaceDeletedClearsAdminMap(t *testing.T) {
	r := New(1024)
	require.NoError(t, r.LinkAdd(1, 10, fib.FamilyV4, newTestPath(5, true)))
	r.OnInterfaceDeleted(1)

	assert.Equal(t, LabelInvalid, r.Adjacency().Admin(5))
	assert.Nil(t, r.GetByInterface(1))
}

func TestDuplicateInterfaceRejected(t *testing.T) {
	r := New(1024)
	require.NoError(t, r.LinkAdd(1, 10, fib.FamilyV4, newTestPath(5, true)))
	err := r.LinkAdd(1, 11, fib.FamilyV4, newTestPath(6, true))
	assert.ErrorIs(t, err, core.ErrInterfaceExists)
}

func TestLinkDelIsIdempotent(t *testing.T) {
	r := New(1024)
	assert.NotPanics(t, func() { r.LinkDel(99) })
}

func TestReachabilityTransitions(t *testing.T) {
	r := New(1024)
	path := newTestPath(5, true)
	require.NoError(t, r.LinkAdd(1, 10, fib.FamilyV4, path))
	assert.Equal(t, Label(10), r.Adjacency().Reachable(5))

	path.SetResolved(false)
	r.OnBackWalk(1)
	assert.Equal(t, LabelInvalid, r.Adjacency().Reachable(5))
	assert.Equal(t, Label(10), r.Adjacency().Admin(5)) // admin map unaffected

	path.SetResolved(true)
	r.OnBackWalk(1)
	assert.Equal(t, Label(10), r.Adjacency().Reachable(5))
}

func TestQualityDownClearsReachableOnlyNotAdmin(t *testing.T) {
	r := New(1024)
	path := newTestPath(5, true)
	require.NoError(t, r.LinkAdd(1, 10, fib.FamilyV4, path))

	r.SetLoss(1, 100)

	assert.Equal(t, LabelInvalid, r.Adjacency().Reachable(5))
	assert.Equal(t, Label(10), r.Adjacency().Admin(5))
}

func TestGetByLabelReturnsOnlyReachable(t *testing.T) {
	r := New(1024)
	path := newTestPath(5, false)
	require.NoError(t, r.LinkAdd(1, 10, fib.FamilyV4, path))
	assert.Nil(t, r.GetByLabel(10))

	path.SetResolved(true)
	r.OnBackWalk(1)
	assert.NotNil(t, r.GetByLabel(10))
}

func TestIsLabeled(t *testing.T) {
	r := New(1024)
	require.NoError(t, r.LinkAdd(1, 10, fib.FamilyV4, newTestPath(5, true)))

	labeled := fib.LoadBalance{Buckets: []fib.DPO{{AdjIndex: 5}}}
	unlabeled := fib.LoadBalance{Buckets: []fib.DPO{{AdjIndex: 6}}}
	assert.True(t, r.IsLabeled(labeled))
	assert.False(t, r.IsLabeled(unlabeled))
}
