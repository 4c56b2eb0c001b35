package decoder

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/nfprobe/internal/core"
)

const (
	udpHeaderLen    = 8
	icmpHeaderLen   = 8
	tcpHeaderMinLen = 20
	tcpHeaderMaxLen = 60
)

// decodeTransport decodes transport layer header (TCP/UDP/ICMP).
// Unknown protocols yield a nil header and the untouched data as payload.
func decodeTransport(data []byte, protocol uint8) (core.TransportHeader, []byte, error) {
	var (
		header  core.TransportHeader
		payload []byte
		err     error
	)
	switch protocol {
	case core.IPProtoTCP:
		var tcp *core.TCPHeader
		tcp, payload, err = decodeTCP(data)
		header = tcp
	case core.IPProtoUDP:
		var udp *core.UDPHeader
		udp, payload, err = decodeUDP(data)
		header = udp
	case core.IPProtoICMP:
		var icmp *core.ICMPHeader
		icmp, payload, err = decodeICMP(data)
		header = icmp
	default:
		return nil, data, nil
	}
	if err != nil {
		// avoid handing out a typed nil inside the interface
		return nil, nil, err
	}
	return header, payload, nil
}

// decodeUDP decodes UDP header.
func decodeUDP(data []byte) (*core.UDPHeader, []byte, error) {
	if len(data) < udpHeaderLen {
		return nil, nil, fmt.Errorf("udp: %d bytes: %w", len(data), core.ErrPacketTooShort)
	}

	udp := &core.UDPHeader{
		SrcPort:  binary.BigEndian.Uint16(data[0:2]),
		DstPort:  binary.BigEndian.Uint16(data[2:4]),
		Length:   binary.BigEndian.Uint16(data[4:6]),
		Checksum: binary.BigEndian.Uint16(data[6:8]),
	}
	if udp.Length < udpHeaderLen {
		return nil, nil, fmt.Errorf("udp: length %d: %w", udp.Length, core.ErrInvalidHeader)
	}

	return udp, data[udpHeaderLen:], nil
}

// decodeTCP decodes TCP header.
func decodeTCP(data []byte) (*core.TCPHeader, []byte, error) {
	if len(data) < tcpHeaderMinLen {
		return nil, nil, fmt.Errorf("tcp: %d bytes: %w", len(data), core.ErrPacketTooShort)
	}

	tcp := &core.TCPHeader{
		SrcPort:    binary.BigEndian.Uint16(data[0:2]),
		DstPort:    binary.BigEndian.Uint16(data[2:4]),
		SeqNum:     binary.BigEndian.Uint32(data[4:8]),
		AckNum:     binary.BigEndian.Uint32(data[8:12]),
		DataOffset: data[12] >> 4,
		Flags:      data[13],
		Window:     binary.BigEndian.Uint16(data[14:16]),
		Checksum:   binary.BigEndian.Uint16(data[16:18]),
		Urgent:     binary.BigEndian.Uint16(data[18:20]),
	}

	headerLen := tcp.HeaderLen()
	if headerLen < tcpHeaderMinLen || headerLen > tcpHeaderMaxLen {
		return nil, nil, fmt.Errorf("tcp: header length %d: %w", headerLen, core.ErrInvalidHeader)
	}
	if len(data) < headerLen {
		return nil, nil, fmt.Errorf("tcp: %d of %d header bytes: %w", len(data), headerLen, core.ErrPacketTooShort)
	}

	// Payload starts after TCP header (including options)
	return tcp, data[headerLen:], nil
}

// decodeICMP decodes the fixed part of an ICMP header.
func decodeICMP(data []byte) (*core.ICMPHeader, []byte, error) {
	if len(data) < icmpHeaderLen {
		return nil, nil, fmt.Errorf("icmp: %d bytes: %w", len(data), core.ErrPacketTooShort)
	}

	icmp := &core.ICMPHeader{
		Type:         data[0],
		Code:         data[1],
		Checksum:     binary.BigEndian.Uint16(data[2:4]),
		RestOfHeader: binary.BigEndian.Uint32(data[4:8]),
	}
	return icmp, data[icmpHeaderLen:], nil
}
