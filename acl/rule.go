package acl

import (
	"github.com/nextlink/abf/fib"
)

// Rule is one ordered ACL rule. A zero field value in any of the match
// fields behaves as a wildcard.
type Rule struct {
	SrcPrefix *Prefix
	DstPrefix *Prefix
	Protocol  uint8 // 0 = wildcard
	SrcPort   uint16
	DstPort   uint16
}

// Prefix is an address/length match term.
type Prefix struct {
	Addr [16]byte
	Bits int
}

func (p *Prefix) matches(addr [16]byte) bool {
	if p == nil {
		return true
	}
	n := p.Bits
	for i := 0; i < n; i++ {
		byteIdx := i / 8
		shift := 7 - (i % 8)
		if (p.Addr[byteIdx]>>shift)&1 != (addr[byteIdx]>>shift)&1 {
			return false
		}
	}
	return true
}

// Context is a compiled, ordered rule set for one RX interface, the ACL
// lookup context spec §4.5 says attach() allocates on first attachment.
// The position of the matching rule is the index into the per-interface
// attachment list (spec §4.5's "ACL match returns an attachment directly").
type Context struct {
	Rules []Rule
}

// Compile builds a Context from an ordered rule list.
func Compile(rules []Rule) *Context {
	return &Context{Rules: append([]Rule(nil), rules...)}
}

// Match5Tuple returns the position of the first matching rule, or -1.
// Plays the role of the out-of-scope acl_match_5tuple.
func (c *Context) Match5Tuple(t fib.FiveTuple) int {
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Protocol != 0 && r.Protocol != t.Protocol {
			continue
		}
		if r.SrcPort != 0 && r.SrcPort != t.SrcPort {
			continue
		}
		if r.DstPort != 0 && r.DstPort != t.DstPort {
			continue
		}
		if !r.SrcPrefix.matches(t.SrcAddr) {
			continue
		}
		if !r.DstPrefix.matches(t.DstAddr) {
			continue
		}
		return i
	}
	return -1
}
