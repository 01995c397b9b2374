package fib

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupWithNoRoutesReturnsEmpty(t *testing.T) {
	tbl := NewTable()
	lb := tbl.LookupV4([4]byte{10, 0, 0, 1})
	assert.Equal(t, 0, lb.NBuckets())
}

func TestLookupReturnsLongestPrefixMatch(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(netip.MustParsePrefix("10.0.0.0/8"), []DPO{{NextNode: "coarse", AdjIndex: 1}})
	tbl.AddRoute(netip.MustParsePrefix("10.0.1.0/24"), []DPO{{NextNode: "fine", AdjIndex: 2}})

	lb := tbl.LookupV4([4]byte{10, 0, 1, 5})
	assert.Equal(t, "fine", lb.Final().NextNode)

	lb = tbl.LookupV4([4]byte{10, 0, 2, 5})
	assert.Equal(t, "coarse", lb.Final().NextNode)
}

func TestLookupWithNoMatchingRouteReturnsEmpty(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(netip.MustParsePrefix("10.0.0.0/8"), []DPO{{AdjIndex: 1}})

	lb := tbl.LookupV4([4]byte{192, 168, 1, 1})
	assert.Equal(t, 0, lb.NBuckets())
}

func TestAddRouteReplacesExistingBuckets(t *testing.T) {
	tbl := NewTable()
	p := netip.MustParsePrefix("203.0.113.0/24")
	tbl.AddRoute(p, []DPO{{AdjIndex: 1}})
	tbl.AddRoute(p, []DPO{{AdjIndex: 2}, {AdjIndex: 3}})

	lb := tbl.LookupV4([4]byte{203, 0, 113, 9})
	assert.Equal(t, 2, lb.NBuckets())
	assert.Equal(t, Adj(2), lb.Bucket(0).AdjIndex)
	assert.Equal(t, Adj(3), lb.Bucket(1).AdjIndex)
}

func TestDelRouteFallsBackToLessSpecificRoute(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(netip.MustParsePrefix("10.0.0.0/8"), []DPO{{NextNode: "coarse", AdjIndex: 1}})
	tbl.AddRoute(netip.MustParsePrefix("10.0.1.0/24"), []DPO{{NextNode: "fine", AdjIndex: 2}})

	tbl.DelRoute(netip.MustParsePrefix("10.0.1.0/24"))

	lb := tbl.LookupV4([4]byte{10, 0, 1, 5})
	assert.Equal(t, "coarse", lb.Final().NextNode)
}

func TestDelRouteOfUnknownPrefixIsNoop(t *testing.T) {
	tbl := NewTable()
	assert.NotPanics(t, func() { tbl.DelRoute(netip.MustParsePrefix("198.51.100.0/24")) })
}

func TestLookupV6MatchesV6Route(t *testing.T) {
	tbl := NewTable()
	tbl.AddRoute(netip.MustParsePrefix("2001:db8::/32"), []DPO{{AdjIndex: 4}})

	var dst [16]byte
	copy(dst[:], netip.MustParseAddr("2001:db8::1").AsSlice())
	lb := tbl.LookupV6(dst)
	assert.Equal(t, Adj(4), lb.Final().AdjIndex)
}

func TestDPOIsValid(t *testing.T) {
	assert.True(t, DPO{AdjIndex: 1}.IsValid())
	assert.False(t, DPO{AdjIndex: AdjInvalid}.IsValid())
}

func TestLoadBalanceFinalOnEmptyReturnsInvalid(t *testing.T) {
	var lb LoadBalance
	assert.False(t, lb.Final().IsValid())
}

func TestFamilyString(t *testing.T) {
	assert.Equal(t, "ip4", FamilyV4.String())
	assert.Equal(t, "ip6", FamilyV6.String())
}
