// Package netflow implements the NetFlow v5 export format and the batcher that
// turns retired flow records into datagrams.
package netflow

import (
	"encoding/binary"
	"time"
)

const (
	// Version is the only export format version produced and accepted.
	Version = 5
	// HeaderSize is the encoded size of a datagram header.
	HeaderSize = 24
	// RecordSize is the encoded size of one flow record.
	RecordSize = 48
	// MaxRecordsPerDatagram is the record limit of a single datagram.
	MaxRecordsPerDatagram = 30
	// MaxDatagramSize is the size of a full datagram.
	MaxDatagramSize = HeaderSize + MaxRecordsPerDatagram*RecordSize

	samplingIntervalMask = 0x3FFF
)

// Header is the NetFlow v5 datagram header (24 bytes on the wire).
type Header struct {
	Version      uint16
	Count        uint16
	SysUptime    uint32 // milliseconds since the exporter started
	UnixSecs     uint32
	UnixNsecs    uint32
	FlowSequence uint32 // records exported so far, including this datagram
	EngineType   uint8
	EngineID     uint8
	// SamplingMode is the 2-bit mode, SamplingInterval the 14-bit interval;
	// they share one 16-bit field.
	SamplingMode     uint8
	SamplingInterval uint16
}

// Stamp carries the clock readings a datagram header is built from.
type Stamp struct {
	Start time.Time // arrival of the first packet observed
	Now   time.Time // arrival of the packet that triggered the export
}

// Uptime returns Now-Start in milliseconds, zero if Now precedes Start.
func (s Stamp) Uptime() uint32 {
	d := s.Now.Sub(s.Start)
	if d < 0 {
		return 0
	}
	return uint32(d.Milliseconds())
}

func (h *Header) put(b []byte) {
	binary.BigEndian.PutUint16(b[0:2], h.Version)
	binary.BigEndian.PutUint16(b[2:4], h.Count)
	binary.BigEndian.PutUint32(b[4:8], h.SysUptime)
	binary.BigEndian.PutUint32(b[8:12], h.UnixSecs)
	binary.BigEndian.PutUint32(b[12:16], h.UnixNsecs)
	binary.BigEndian.PutUint32(b[16:20], h.FlowSequence)
	b[20] = h.EngineType
	b[21] = h.EngineID
	binary.BigEndian.PutUint16(b[22:24], uint16(h.SamplingMode&0x3)<<14|h.SamplingInterval&samplingIntervalMask)
}

func (h *Header) get(b []byte) {
	sampling := binary.BigEndian.Uint16(b[22:24])
	*h = Header{
		Version:          binary.BigEndian.Uint16(b[0:2]),
		Count:            binary.BigEndian.Uint16(b[2:4]),
		SysUptime:        binary.BigEndian.Uint32(b[4:8]),
		UnixSecs:         binary.BigEndian.Uint32(b[8:12]),
		UnixNsecs:        binary.BigEndian.Uint32(b[12:16]),
		FlowSequence:     binary.BigEndian.Uint32(b[16:20]),
		EngineType:       b[20],
		EngineID:         b[21],
		SamplingMode:     uint8(sampling >> 14),
		SamplingInterval: sampling & samplingIntervalMask,
	}
}
