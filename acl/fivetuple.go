// Package acl is a minimal, ordered 5-tuple classifier standing in for the
// production ACL matcher, which spec §1 marks out of scope ("The ACL
// matcher itself... consumed through narrow interfaces"). It is narrow
// enough to exercise the Policy Decision Module and Datapath Node in tests
// without depending on any unexported detail of a real ACL engine.
package acl

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/nextlink/abf/fib"
)

// Fill5Tuple decodes an Ethernet+IP+TCP/UDP frame into a FiveTuple, playing
// the role of the out-of-scope acl_fill_5tuple. Grounded on the teacher's
// only packet-decoding dependency (gopacket), used in face/impl/pcap.go as
// the PacketDataSource boundary.
func Fill5Tuple(frame []byte) (fib.FiveTuple, bool) {
	packet := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.NoCopy)

	var tuple fib.FiveTuple
	var haveNet, haveTransport bool

	if v4 := packet.Layer(layers.LayerTypeIPv4); v4 != nil {
		ip4, _ := v4.(*layers.IPv4)
		copy(tuple.SrcAddr[:4], ip4.SrcIP.To4())
		copy(tuple.DstAddr[:4], ip4.DstIP.To4())
		tuple.Protocol = uint8(ip4.Protocol)
		tuple.IsV6 = false
		tuple.DSCP = ip4.TOS >> 2
		haveNet = true
	} else if v6 := packet.Layer(layers.LayerTypeIPv6); v6 != nil {
		ip6, _ := v6.(*layers.IPv6)
		copy(tuple.SrcAddr[:], ip6.SrcIP.To16())
		copy(tuple.DstAddr[:], ip6.DstIP.To16())
		tuple.Protocol = uint8(ip6.NextHeader)
		tuple.IsV6 = true
		tuple.DSCP = ip6.TrafficClass >> 2
		haveNet = true
	}
	if !haveNet {
		return tuple, false
	}

	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp, _ := tcpLayer.(*layers.TCP)
		tuple.SrcPort = uint16(tcp.SrcPort)
		tuple.DstPort = uint16(tcp.DstPort)
		haveTransport = true
	} else if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp, _ := udpLayer.(*layers.UDP)
		tuple.SrcPort = uint16(udp.SrcPort)
		tuple.DstPort = uint16(udp.DstPort)
		haveTransport = true
	}

	return tuple, haveNet && (haveTransport || tuple.Protocol != 0)
}
