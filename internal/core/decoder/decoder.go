// Package decoder implements L2-L4 protocol stack decoding.
package decoder

import (
	"fmt"

	"firestige.xyz/nfprobe/internal/core"
)

// Decoder decodes raw packets into structured format.
type Decoder interface {
	Decode(raw core.RawPacket) (core.ParsedPacket, error)
}

// StandardDecoder decodes Ethernet frames carrying IPv4 or IPv6 and, on top of
// those, TCP, UDP or ICMP. It copies header fields into host-order structs and
// never copies the payload.
type StandardDecoder struct{}

// NewStandardDecoder creates a new decoder.
func NewStandardDecoder() *StandardDecoder {
	return &StandardDecoder{}
}

// Decode decodes one frame. Any error means the packet is unusable for flow
// accounting; the returned ParsedPacket then holds whatever was decoded before
// the failure.
func (d *StandardDecoder) Decode(raw core.RawPacket) (core.ParsedPacket, error) {
	pkt := core.ParsedPacket{
		Timestamp: raw.Timestamp,
		Length:    raw.OrigLen,
	}
	if pkt.Length == 0 {
		pkt.Length = uint32(len(raw.Data))
	}

	eth, rest, err := decodeEthernet(raw.Data)
	if err != nil {
		return pkt, err
	}
	pkt.Ethernet = eth

	var proto uint8
	switch eth.EtherType {
	case etherTypeIPv4:
		ip, payload, err := decodeIPv4(rest)
		if err != nil {
			return pkt, err
		}
		pkt.Network = ip
		proto = ip.Protocol
		rest = payload
	case etherTypeIPv6:
		ip, payload, err := decodeIPv6(rest)
		if err != nil {
			return pkt, err
		}
		pkt.Network = ip
		proto = ip.NextHeader
		rest = payload
	default:
		return pkt, fmt.Errorf("ethertype 0x%04x: %w", eth.EtherType, core.ErrUnsupportedProto)
	}

	transport, payload, err := decodeTransport(rest, proto)
	if err != nil {
		return pkt, err
	}
	pkt.Transport = transport
	pkt.Payload = payload
	return pkt, nil
}
