package decoder

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"firestige.xyz/nfprobe/internal/core"
)

const (
	ipv4HeaderMinLen = 20
	ipv6HeaderLen    = 40
)

// decodeIPv4 decodes IPv4 header. Options are skipped, the checksum is kept
// as-is.
func decodeIPv4(data []byte) (*core.IPv4Header, []byte, error) {
	if len(data) < 1 {
		return nil, nil, fmt.Errorf("ipv4: empty: %w", core.ErrPacketTooShort)
	}

	// IHL (Internet Header Length) - lower 4 bits of first byte
	ihl := data[0] & 0x0F
	headerLen := int(ihl) * 4 // IHL is in 32-bit words
	if headerLen < ipv4HeaderMinLen {
		return nil, nil, fmt.Errorf("ipv4: header length %d: %w", headerLen, core.ErrInvalidHeader)
	}
	if len(data) < headerLen {
		return nil, nil, fmt.Errorf("ipv4: %d of %d header bytes: %w", len(data), headerLen, core.ErrPacketTooShort)
	}

	flagsOffset := binary.BigEndian.Uint16(data[6:8])
	ip := &core.IPv4Header{
		IHL:        ihl,
		TOS:        data[1],
		TotalLen:   binary.BigEndian.Uint16(data[2:4]),
		ID:         binary.BigEndian.Uint16(data[4:6]),
		Flags:      uint8(flagsOffset >> 13),
		FragOffset: flagsOffset & 0x1FFF,
		TTL:        data[8],
		Protocol:   data[9],
		Checksum:   binary.BigEndian.Uint16(data[10:12]),
		SrcIP:      netip.AddrFrom4([4]byte(data[12:16])),
		DstIP:      netip.AddrFrom4([4]byte(data[16:20])),
	}

	// Payload starts after IP header
	return ip, data[headerLen:], nil
}

// decodeIPv6 decodes the fixed IPv6 header.
func decodeIPv6(data []byte) (*core.IPv6Header, []byte, error) {
	if len(data) < ipv6HeaderLen {
		return nil, nil, fmt.Errorf("ipv6: %d bytes: %w", len(data), core.ErrPacketTooShort)
	}

	// Version (4) | Traffic Class (8) | Flow Label (20)
	vtf := binary.BigEndian.Uint32(data[0:4])
	ip := &core.IPv6Header{
		TrafficClass: uint8(vtf >> 20),
		FlowLabel:    vtf & 0x000FFFFF,
		PayloadLen:   binary.BigEndian.Uint16(data[4:6]),
		NextHeader:   data[6],
		HopLimit:     data[7],
		SrcIP:        netip.AddrFrom16([16]byte(data[8:24])),
		DstIP:        netip.AddrFrom16([16]byte(data[24:40])),
	}

	// Extension headers are not walked; NextHeader is taken as the transport protocol.
	return ip, data[ipv6HeaderLen:], nil
}
