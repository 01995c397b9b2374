package fib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowHashIsSymmetricAcrossDirections(t *testing.T) {
	fwd := FiveTuple{
		SrcAddr: [16]byte{10, 0, 0, 1}, DstAddr: [16]byte{10, 0, 0, 2},
		SrcPort: 5000, DstPort: 80, Protocol: 6,
	}
	rev := FiveTuple{
		SrcAddr: fwd.DstAddr, DstAddr: fwd.SrcAddr,
		SrcPort: fwd.DstPort, DstPort: fwd.SrcPort, Protocol: fwd.Protocol,
	}
	assert.Equal(t, FlowHash(fwd), FlowHash(rev))
}

func TestFlowHashIgnoresDSCP(t *testing.T) {
	base := FiveTuple{SrcAddr: [16]byte{10, 0, 0, 1}, DstAddr: [16]byte{10, 0, 0, 2}, Protocol: 17}
	withDSCP := base
	withDSCP.DSCP = 0x2E
	assert.Equal(t, FlowHash(base), FlowHash(withDSCP))
}

func TestFlowHashDiffersAcrossDistinctFlows(t *testing.T) {
	a := FiveTuple{SrcAddr: [16]byte{10, 0, 0, 1}, DstAddr: [16]byte{10, 0, 0, 2}, SrcPort: 1, DstPort: 2, Protocol: 6}
	b := FiveTuple{SrcAddr: [16]byte{10, 0, 0, 3}, DstAddr: [16]byte{10, 0, 0, 4}, SrcPort: 1, DstPort: 2, Protocol: 6}
	assert.NotEqual(t, FlowHash(a), FlowHash(b))
}

func TestPow2MaskSmallAndLargeGroups(t *testing.T) {
	nMinus1, mask := Pow2Mask(4)
	assert.Equal(t, uint32(3), nMinus1)
	assert.Equal(t, uint32(0x0F), mask)

	nMinus1, mask = Pow2Mask(20)
	assert.Equal(t, uint32(19), nMinus1)
	assert.Equal(t, uint32(0xFF), mask)
}

func TestPow2MaskZeroIsZero(t *testing.T) {
	nMinus1, mask := Pow2Mask(0)
	assert.Equal(t, uint32(0), nMinus1)
	assert.Equal(t, uint32(0), mask)
}

func TestFlowHashIndexFallsBackWhenOverRange(t *testing.T) {
	nMinus1, mask := Pow2Mask(3) // nMinus1=2, mask=0x0F
	// Pick a hash whose low nibble exceeds nMinus1 to exercise the fallback.
	idx := FlowHashIndex(0x0000000B, nMinus1, mask) // 0x0B=11 > 2
	assert.LessOrEqual(t, idx, nMinus1)
}

func TestFlowHashIndexWithinRangeUsedDirectly(t *testing.T) {
	nMinus1, mask := Pow2Mask(16) // nMinus1=15, mask=0x0F
	idx := FlowHashIndex(0x00000007, nMinus1, mask)
	assert.Equal(t, uint32(7), idx)
}
