// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawPacket is one captured frame as handed over by a packet source.
// Data is only valid until the source is asked for the next packet.
type RawPacket struct {
	Data           []byte    // Raw frame data, zero-copy slice
	Timestamp      time.Time // Capture timestamp
	CaptureLen     uint32    // Actual captured length
	OrigLen        uint32    // Original (declared) frame length
	InterfaceIndex int       // Network interface index, 0 if unknown
}

// IPVersion tags the network layer of a ParsedPacket.
type IPVersion uint8

const (
	IPVersionNone IPVersion = iota
	IPVersion4
	IPVersion6
)

func (v IPVersion) String() string {
	switch v {
	case IPVersion4:
		return "ipv4"
	case IPVersion6:
		return "ipv6"
	default:
		return "none"
	}
}

// Protocol tags the transport layer of a ParsedPacket.
type Protocol uint8

const (
	ProtocolNone Protocol = iota
	ProtocolTCP
	ProtocolUDP
	ProtocolICMP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	case ProtocolICMP:
		return "icmp"
	default:
		return "none"
	}
}

// NetworkHeader is implemented by *IPv4Header and *IPv6Header only.
type NetworkHeader interface {
	Version() IPVersion
	// NextProtocol is the IP protocol number (IPv4 protocol, IPv6 next header).
	NextProtocol() uint8
}

func (h *IPv4Header) Version() IPVersion  { return IPVersion4 }
func (h *IPv4Header) NextProtocol() uint8 { return h.Protocol }
func (h *IPv6Header) Version() IPVersion  { return IPVersion6 }
func (h *IPv6Header) NextProtocol() uint8 { return h.NextHeader }

// TransportHeader is implemented by *TCPHeader, *UDPHeader and *ICMPHeader only.
type TransportHeader interface {
	Kind() Protocol
}

func (h *TCPHeader) Kind() Protocol  { return ProtocolTCP }
func (h *UDPHeader) Kind() Protocol  { return ProtocolUDP }
func (h *ICMPHeader) Kind() Protocol { return ProtocolICMP }

// ParsedPacket is the result of L2-L4 decoding. It references the RawPacket's
// buffer through Payload and must not outlive it.
//
// Network is nil when the frame carried no IP header; Transport is nil when
// Network is nil or the IP protocol is not TCP, UDP or ICMP.
type ParsedPacket struct {
	Timestamp time.Time
	Ethernet  EthernetHeader
	Network   NetworkHeader
	Transport TransportHeader
	Payload   []byte
	Length    uint32 // declared length of the whole frame
}

// IPVersion returns the tag of the network layer.
func (p *ParsedPacket) IPVersion() IPVersion {
	if p.Network == nil {
		return IPVersionNone
	}
	return p.Network.Version()
}

// Protocol returns the tag of the transport layer.
func (p *ParsedPacket) Protocol() Protocol {
	if p.Network == nil || p.Transport == nil {
		return ProtocolNone
	}
	return p.Transport.Kind()
}

// IPv4 returns the IPv4 header if the packet carries one.
func (p *ParsedPacket) IPv4() (*IPv4Header, bool) {
	h, ok := p.Network.(*IPv4Header)
	return h, ok
}

// IPv6 returns the IPv6 header if the packet carries one.
func (p *ParsedPacket) IPv6() (*IPv6Header, bool) {
	h, ok := p.Network.(*IPv6Header)
	return h, ok
}

// TCP returns the TCP header if the packet carries one.
func (p *ParsedPacket) TCP() (*TCPHeader, bool) {
	h, ok := p.Transport.(*TCPHeader)
	return h, ok
}

// UDP returns the UDP header if the packet carries one.
func (p *ParsedPacket) UDP() (*UDPHeader, bool) {
	h, ok := p.Transport.(*UDPHeader)
	return h, ok
}

// ICMP returns the ICMP header if the packet carries one.
func (p *ParsedPacket) ICMP() (*ICMPHeader, bool) {
	h, ok := p.Transport.(*ICMPHeader)
	return h, ok
}

// Ports returns transport ports, zero for ICMP and unknown protocols.
func (p *ParsedPacket) Ports() (src, dst uint16) {
	switch h := p.Transport.(type) {
	case *TCPHeader:
		return h.SrcPort, h.DstPort
	case *UDPHeader:
		return h.SrcPort, h.DstPort
	}
	return 0, 0
}
