package core

import "net/netip"

// TCP flag bits as found in byte 13 of the TCP header.
const (
	TCPFlagFIN uint8 = 0x01
	TCPFlagSYN uint8 = 0x02
	TCPFlagRST uint8 = 0x04
	TCPFlagPSH uint8 = 0x08
	TCPFlagACK uint8 = 0x10
	TCPFlagURG uint8 = 0x20
	TCPFlagECE uint8 = 0x40
	TCPFlagCWR uint8 = 0x80
)

// IP protocol numbers understood by the decoder.
const (
	IPProtoICMP uint8 = 1
	IPProtoTCP  uint8 = 6
	IPProtoUDP  uint8 = 17
)

// EthernetHeader represents L2 Ethernet frame header.
type EthernetHeader struct {
	DstMAC    [6]byte
	SrcMAC    [6]byte
	EtherType uint16 // 0x0800=IPv4, 0x86DD=IPv6
}

// IPv4Header is a host-order copy of an IPv4 header.
type IPv4Header struct {
	IHL        uint8 // header length in 32-bit words
	TOS        uint8 // DSCP (upper 6 bits) + ECN (lower 2 bits)
	TotalLen   uint16
	ID         uint16
	Flags      uint8 // 3 bits: reserved, DF, MF
	FragOffset uint16
	TTL        uint8
	Protocol   uint8
	Checksum   uint16 // decoded, never verified
	SrcIP      netip.Addr
	DstIP      netip.Addr
}

// HeaderLen returns the header length in bytes.
func (h *IPv4Header) HeaderLen() int { return int(h.IHL) * 4 }

// DSCP returns the differentiated services code point.
func (h *IPv4Header) DSCP() uint8 { return h.TOS >> 2 }

// ECN returns the explicit congestion notification bits.
func (h *IPv4Header) ECN() uint8 { return h.TOS & 0x03 }

// IPv6Header is a host-order copy of the fixed IPv6 header.
// Extension headers are not walked.
type IPv6Header struct {
	TrafficClass uint8
	FlowLabel    uint32 // 20 bits
	PayloadLen   uint16
	NextHeader   uint8
	HopLimit     uint8
	SrcIP        netip.Addr
	DstIP        netip.Addr
}

// TCPHeader is a host-order copy of a TCP header, options excluded.
type TCPHeader struct {
	SrcPort    uint16
	DstPort    uint16
	SeqNum     uint32
	AckNum     uint32
	DataOffset uint8 // header length in 32-bit words
	Flags      uint8
	Window     uint16
	Checksum   uint16
	Urgent     uint16
}

// HeaderLen returns the header length in bytes, options included.
func (h *TCPHeader) HeaderLen() int { return int(h.DataOffset) * 4 }

// UDPHeader is a host-order copy of a UDP header.
type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16 // header + data
	Checksum uint16
}

// ICMPHeader is a host-order copy of the fixed 8-byte ICMP header.
type ICMPHeader struct {
	Type         uint8
	Code         uint8
	Checksum     uint16
	RestOfHeader uint32
}
