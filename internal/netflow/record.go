package netflow

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/nfprobe/internal/flow"
)

// Record is the NetFlow v5 flow record (48 bytes on the wire). Padding
// bytes are always written as zero and dropped on decode.
type Record struct {
	SrcAddr  netip.Addr
	DstAddr  netip.Addr
	NextHop  netip.Addr
	Input    uint16
	Output   uint16
	Packets  uint32
	Octets   uint32
	First    uint32
	Last     uint32
	SrcPort  uint16
	DstPort  uint16
	TCPFlags uint8
	Proto    uint8
	TOS      uint8
	SrcAS    uint16
	DstAS    uint16
	SrcMask  uint8
	DstMask  uint8
}

// FromFlow projects a retired flow record onto the wire layout. Routing
// fields the probe does not know (next hop, interfaces, AS, masks) are zero.
func FromFlow(r flow.Record) Record {
	return Record{
		SrcAddr:  r.SrcAddr,
		DstAddr:  r.DstAddr,
		NextHop:  netip.IPv4Unspecified(),
		Packets:  r.Packets,
		Octets:   r.Octets,
		First:    r.First,
		Last:     r.Last,
		SrcPort:  r.SrcPort,
		DstPort:  r.DstPort,
		TCPFlags: r.TCPFlags,
		Proto:    r.Proto,
		TOS:      r.TOS,
	}
}

func (r *Record) put(b []byte) {
	putAddr(b[0:4], r.SrcAddr)
	putAddr(b[4:8], r.DstAddr)
	putAddr(b[8:12], r.NextHop)
	binary.BigEndian.PutUint16(b[12:14], r.Input)
	binary.BigEndian.PutUint16(b[14:16], r.Output)
	binary.BigEndian.PutUint32(b[16:20], r.Packets)
	binary.BigEndian.PutUint32(b[20:24], r.Octets)
	binary.BigEndian.PutUint32(b[24:28], r.First)
	binary.BigEndian.PutUint32(b[28:32], r.Last)
	binary.BigEndian.PutUint16(b[32:34], r.SrcPort)
	binary.BigEndian.PutUint16(b[34:36], r.DstPort)
	b[36] = 0 // pad1
	b[37] = r.TCPFlags
	b[38] = r.Proto
	b[39] = r.TOS
	binary.BigEndian.PutUint16(b[40:42], r.SrcAS)
	binary.BigEndian.PutUint16(b[42:44], r.DstAS)
	b[44] = r.SrcMask
	b[45] = r.DstMask
	b[46], b[47] = 0, 0 // pad2
}

func (r *Record) get(b []byte) {
	*r = Record{
		SrcAddr:  netip.AddrFrom4([4]byte(b[0:4])),
		DstAddr:  netip.AddrFrom4([4]byte(b[4:8])),
		NextHop:  netip.AddrFrom4([4]byte(b[8:12])),
		Input:    binary.BigEndian.Uint16(b[12:14]),
		Output:   binary.BigEndian.Uint16(b[14:16]),
		Packets:  binary.BigEndian.Uint32(b[16:20]),
		Octets:   binary.BigEndian.Uint32(b[20:24]),
		First:    binary.BigEndian.Uint32(b[24:28]),
		Last:     binary.BigEndian.Uint32(b[28:32]),
		SrcPort:  binary.BigEndian.Uint16(b[32:34]),
		DstPort:  binary.BigEndian.Uint16(b[34:36]),
		TCPFlags: b[37],
		Proto:    b[38],
		TOS:      b[39],
		SrcAS:    binary.BigEndian.Uint16(b[40:42]),
		DstAS:    binary.BigEndian.Uint16(b[42:44]),
		SrcMask:  b[44],
		DstMask:  b[45],
	}
}

// putAddr writes an IPv4 address; anything else is written as 0.0.0.0.
func putAddr(b []byte, a netip.Addr) {
	a = a.Unmap()
	if !a.Is4() {
		clear(b[:4])
		return
	}
	v := a.As4()
	copy(b[:4], v[:])
}
