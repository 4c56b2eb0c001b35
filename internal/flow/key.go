// Package flow implements unidirectional IPv4 flow accounting: the flow key,
// the per-flow counters and the flow table that ages and evicts them.
package flow

import (
	"fmt"
	"net/netip"

	"firestige.xyz/nfprobe/internal/core"
)

// Key identifies a flow. Two packets belong to the same flow iff all six
// fields are equal. Ports are zero for ICMP and unknown protocols.
type Key struct {
	SrcAddr netip.Addr
	DstAddr netip.Addr
	Proto   uint8
	TOS     uint8
	SrcPort uint16
	DstPort uint16
}

// KeyOf derives the flow key of an IPv4 packet. ok is false for anything else.
func KeyOf(pkt *core.ParsedPacket) (key Key, ok bool) {
	ip, ok := pkt.IPv4()
	if !ok {
		return Key{}, false
	}
	src, dst := pkt.Ports()
	return Key{
		SrcAddr: ip.SrcIP,
		DstAddr: ip.DstIP,
		Proto:   ip.Protocol,
		TOS:     ip.TOS,
		SrcPort: src,
		DstPort: dst,
	}, true
}

func (k Key) String() string {
	return fmt.Sprintf("%d %s:%d -> %s:%d tos=0x%02x",
		k.Proto, k.SrcAddr, k.SrcPort, k.DstAddr, k.DstPort, k.TOS)
}
