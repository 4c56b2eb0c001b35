package netflow

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/nfprobe/internal/flow"
)

func sampleFlow() flow.Record {
	return flow.Record{
		SrcAddr:  netip.MustParseAddr("192.168.1.10"),
		DstAddr:  netip.MustParseAddr("10.20.30.40"),
		Packets:  42,
		Octets:   61234,
		First:    3,
		Last:     17,
		SrcPort:  51515,
		DstPort:  443,
		TCPFlags: 0x1B,
		Proto:    6,
		TOS:      0xB8,
	}
}

func sampleDatagram(n int) Datagram {
	dg := Datagram{
		Header: Header{
			Version:          Version,
			Count:            uint16(n),
			SysUptime:        123456,
			UnixSecs:         1700000000,
			UnixNsecs:        999999999,
			FlowSequence:     77,
			EngineType:       1,
			EngineID:         2,
			SamplingMode:     1,
			SamplingInterval: 100,
		},
	}
	for i := 0; i < n; i++ {
		r := FromFlow(sampleFlow())
		r.SrcPort = uint16(i)
		dg.Records = append(dg.Records, r)
	}
	return dg
}

func TestDatagramMarshalLayout(t *testing.T) {
	dg := sampleDatagram(1)

	b, err := dg.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, HeaderSize+RecordSize)

	// header
	assert.Equal(t, uint16(5), binary.BigEndian.Uint16(b[0:2]))
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(b[2:4]))
	assert.Equal(t, uint32(123456), binary.BigEndian.Uint32(b[4:8]))
	assert.Equal(t, uint32(1700000000), binary.BigEndian.Uint32(b[8:12]))
	assert.Equal(t, uint32(999999999), binary.BigEndian.Uint32(b[12:16]))
	assert.Equal(t, uint32(77), binary.BigEndian.Uint32(b[16:20]))
	assert.Equal(t, byte(1), b[20])
	assert.Equal(t, byte(2), b[21])
	assert.Equal(t, uint16(0x4064), binary.BigEndian.Uint16(b[22:24]))

	// record
	r := b[HeaderSize:]
	assert.Equal(t, []byte{192, 168, 1, 10}, r[0:4])
	assert.Equal(t, []byte{10, 20, 30, 40}, r[4:8])
	assert.Equal(t, []byte{0, 0, 0, 0}, r[8:12], "next hop")
	assert.Equal(t, []byte{0, 0, 0, 0}, r[12:16], "interfaces")
	assert.Equal(t, uint32(42), binary.BigEndian.Uint32(r[16:20]))
	assert.Equal(t, uint32(61234), binary.BigEndian.Uint32(r[20:24]))
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(r[24:28]))
	assert.Equal(t, uint32(17), binary.BigEndian.Uint32(r[28:32]))
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(r[32:34]))
	assert.Equal(t, uint16(443), binary.BigEndian.Uint16(r[34:36]))
	assert.Equal(t, byte(0), r[36], "pad1")
	assert.Equal(t, byte(0x1B), r[37])
	assert.Equal(t, byte(6), r[38])
	assert.Equal(t, byte(0xB8), r[39])
	assert.Equal(t, make([]byte, 8), r[40:48], "as, masks, pad2")
}

func TestDatagramSize(t *testing.T) {
	for _, n := range []int{1, 15, MaxRecordsPerDatagram} {
		dg := sampleDatagram(n)
		b, err := dg.MarshalBinary()
		require.NoError(t, err)
		assert.Len(t, b, 24+48*n)
		assert.Equal(t, len(b), dg.Size())
	}
}

func TestDatagramRoundTrip(t *testing.T) {
	dg := sampleDatagram(3)

	b, err := dg.MarshalBinary()
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, dg.Header, got.Header)
	require.Len(t, got.Records, 3)
	for i := range dg.Records {
		assert.Equal(t, dg.Records[i], got.Records[i])
	}

	var again Datagram
	require.NoError(t, again.UnmarshalBinary(b))
	assert.Equal(t, got, again)
}

func TestFlowRecordRoundTrip(t *testing.T) {
	src := sampleFlow()

	dg := Datagram{
		Header:  Header{Version: Version, Count: 1},
		Records: []Record{FromFlow(src)},
	}
	b, err := dg.MarshalBinary()
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	r := got.Records[0]

	assert.Equal(t, src.SrcAddr, r.SrcAddr)
	assert.Equal(t, src.DstAddr, r.DstAddr)
	assert.Equal(t, src.Packets, r.Packets)
	assert.Equal(t, src.Octets, r.Octets)
	assert.Equal(t, src.First, r.First)
	assert.Equal(t, src.Last, r.Last)
	assert.Equal(t, src.SrcPort, r.SrcPort)
	assert.Equal(t, src.DstPort, r.DstPort)
	assert.Equal(t, src.TCPFlags, r.TCPFlags)
	assert.Equal(t, src.Proto, r.Proto)
	assert.Equal(t, src.TOS, r.TOS)
}

func TestDatagramValidate(t *testing.T) {
	badVersion := sampleDatagram(1)
	badVersion.Header.Version = 9

	mismatch := sampleDatagram(2)
	mismatch.Header.Count = 3

	tooMany := sampleDatagram(MaxRecordsPerDatagram + 1)

	tests := []struct {
		name string
		dg   Datagram
		want error
	}{
		{"bad version", badVersion, ErrBadVersion},
		{"empty", Datagram{Header: Header{Version: Version}}, ErrEmptyBatch},
		{"too many", tooMany, ErrTooManyRecords},
		{"count mismatch", mismatch, ErrCountMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.dg.MarshalBinary()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	dg := sampleDatagram(2)
	good, err := dg.MarshalBinary()
	require.NoError(t, err)

	clone := func(mutate func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return mutate(b)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrShortDatagram},
		{"short header", good[:HeaderSize-1], ErrShortDatagram},
		{"truncated record", good[:len(good)-1], ErrShortDatagram},
		{"trailing bytes", clone(func(b []byte) []byte { return append(b, 0) }), ErrTrailingData},
		{"version 9", clone(func(b []byte) []byte { b[1] = 9; return b }), ErrBadVersion},
		{"zero count", clone(func(b []byte) []byte { b[3] = 0; return b[:HeaderSize] }), ErrEmptyBatch},
		{"count 31", clone(func(b []byte) []byte { b[3] = 31; return b }), ErrTooManyRecords},
		{"count larger than buffer", clone(func(b []byte) []byte { b[3] = 3; return b }), ErrShortDatagram},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNonIPv4AddressEncodesAsZero(t *testing.T) {
	dg := Datagram{
		Header: Header{Version: Version, Count: 1},
		Records: []Record{{
			SrcAddr: netip.MustParseAddr("::ffff:10.1.2.3"),
			DstAddr: netip.MustParseAddr("2001:db8::1"),
		}},
	}
	b, err := dg.MarshalBinary()
	require.NoError(t, err)

	assert.Equal(t, []byte{10, 1, 2, 3}, b[HeaderSize:HeaderSize+4])
	assert.Equal(t, []byte{0, 0, 0, 0}, b[HeaderSize+4:HeaderSize+8])
}
