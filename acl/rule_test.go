package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nextlink/abf/fib"
)

func addr4(a, b, c, d byte) [16]byte {
	var out [16]byte
	out[0], out[1], out[2], out[3] = a, b, c, d
	return out
}

func TestMatch5TupleWildcardRuleMatchesAnything(t *testing.T) {
	ctx := Compile([]Rule{{}})
	pos := ctx.Match5Tuple(fib.FiveTuple{Protocol: 17, SrcAddr: addr4(10, 0, 0, 1)})
	assert.Equal(t, 0, pos)
}

func TestMatch5TupleProtocolMismatchSkips(t *testing.T) {
	ctx := Compile([]Rule{{Protocol: 6}})
	pos := ctx.Match5Tuple(fib.FiveTuple{Protocol: 17})
	assert.Equal(t, -1, pos)
}

func TestMatch5TuplePortMatch(t *testing.T) {
	ctx := Compile([]Rule{{DstPort: 443}})
	assert.Equal(t, 0, ctx.Match5Tuple(fib.FiveTuple{DstPort: 443}))
	assert.Equal(t, -1, ctx.Match5Tuple(fib.FiveTuple{DstPort: 80}))
}

func TestMatch5TuplePrefixMatch(t *testing.T) {
	ctx := Compile([]Rule{{DstPrefix: &Prefix{Addr: addr4(203, 0, 113, 0), Bits: 24}}})
	assert.Equal(t, 0, ctx.Match5Tuple(fib.FiveTuple{DstAddr: addr4(203, 0, 113, 200)}))
	assert.Equal(t, -1, ctx.Match5Tuple(fib.FiveTuple{DstAddr: addr4(198, 51, 100, 1)}))
}

// Rules are evaluated in declared order; the first match wins even when a
// later rule (here the trailing wildcard) would also match.
func TestMatch5TupleReturnsFirstMatchPosition(t *testing.T) {
	ctx := Compile([]Rule{
		{Protocol: 6},
		{Protocol: 17},
		{},
	})
	assert.Equal(t, 1, ctx.Match5Tuple(fib.FiveTuple{Protocol: 17}))
	assert.Equal(t, 2, ctx.Match5Tuple(fib.FiveTuple{Protocol: 1}))
}

func TestCompileCopiesRulesSoCallerMutationIsSafe(t *testing.T) {
	rules := []Rule{{Protocol: 6}}
	ctx := Compile(rules)
	rules[0].Protocol = 17
	assert.Equal(t, uint8(6), ctx.Rules[0].Protocol)
}
