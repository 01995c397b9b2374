package link

import (
	"net"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/nextlink/abf/fib"
)

// setReuseAddr sets SO_REUSEADDR on the socket backing a transmit link's
// resolver, grounded verbatim on the teacher's face/impl/syscalls-unix.go
// (used there for UDP face listeners; used here so a tunnel's keepalive
// probe socket can rebind quickly after a link flap).
func setReuseAddr(network string, address string, c syscall.RawConn) error {
	var err error
	controlErr := c.Control(func(fd uintptr) {
		err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if controlErr != nil {
		return controlErr
	}
	return err
}

// UDPPathList is a PathList backed by a UDP socket to the next hop,
// standing in for a tunnel or WAN interface's forwarding descriptor
// resolution. "Reachable" here is the flag last set with SetResolved;
// Resolve does not dial the next hop. In the real engine this is the
// routing subsystem's ARP/ND resolution, out of scope per spec §1.
type UDPPathList struct {
	NextHop  *net.UDPAddr
	AdjIndex uint32
	NextNode string
	dialer   net.ListenConfig

	resolved atomic.Bool
}

// NewUDPPathList creates a path-list resolver for nextHop, applying
// SO_REUSEADDR the way the teacher's UDP listener does.
func NewUDPPathList(nextHop *net.UDPAddr, adjIndex uint32, nextNode string) *UDPPathList {
	p := &UDPPathList{NextHop: nextHop, AdjIndex: adjIndex, NextNode: nextNode}
	p.dialer = net.ListenConfig{Control: setReuseAddr}
	return p
}

// SetResolved simulates the routing subsystem completing (or losing)
// ARP/ND resolution for this path-list's next hop.
func (p *UDPPathList) SetResolved(resolved bool) { p.resolved.Store(resolved) }

// Resolve implements PathList.
func (p *UDPPathList) Resolve() (fib.DPO, bool) {
	reachable := p.resolved.Load()
	return fib.DPO{NextNode: p.NextNode, AdjIndex: fib.Adj(p.AdjIndex)}, reachable
}
