package flow

import (
	"fmt"
	"net/netip"

	"firestige.xyz/nfprobe/internal/core"
)

// Record holds the counters of one live or retired flow.
// First and Last are whole seconds since the first packet of the run.
type Record struct {
	SrcAddr  netip.Addr
	DstAddr  netip.Addr
	Packets  uint32
	Octets   uint32
	First    uint32
	Last     uint32
	SrcPort  uint16
	DstPort  uint16
	TCPFlags uint8
	Proto    uint8
	TOS      uint8
}

// Key returns the identity of the record.
func (r *Record) Key() Key {
	return Key{
		SrcAddr: r.SrcAddr,
		DstAddr: r.DstAddr,
		Proto:   r.Proto,
		TOS:     r.TOS,
		SrcPort: r.SrcPort,
		DstPort: r.DstPort,
	}
}

func newRecord(key Key, octets uint32, flags uint8, now uint32) Record {
	return Record{
		SrcAddr:  key.SrcAddr,
		DstAddr:  key.DstAddr,
		Packets:  1,
		Octets:   octets,
		First:    now,
		Last:     now,
		SrcPort:  key.SrcPort,
		DstPort:  key.DstPort,
		TCPFlags: flags,
		Proto:    key.Proto,
		TOS:      key.TOS,
	}
}

// add accounts one more packet. Counters wrap as the 32-bit wire fields do.
func (r *Record) add(octets uint32, flags uint8, now uint32) {
	r.Packets++
	r.Octets += octets
	r.TCPFlags |= flags
	r.Last = now
}

// OctetSource selects which length is accounted as a packet's octets.
type OctetSource uint8

const (
	// OctetsFrame counts the declared length of the captured frame.
	OctetsFrame OctetSource = iota
	// OctetsIP counts the IPv4 total length field.
	OctetsIP
)

// ParseOctetSource maps the configuration value ("frame" or "ip").
func ParseOctetSource(s string) (OctetSource, error) {
	switch s {
	case "", "frame":
		return OctetsFrame, nil
	case "ip":
		return OctetsIP, nil
	default:
		return 0, fmt.Errorf("unknown octet source %q", s)
	}
}

func (s OctetSource) String() string {
	if s == OctetsIP {
		return "ip"
	}
	return "frame"
}

func (s OctetSource) octets(pkt *core.ParsedPacket, ip *core.IPv4Header) uint32 {
	if s == OctetsIP {
		return uint32(ip.TotalLen)
	}
	return pkt.Length
}
