package netflow

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/nfprobe/internal/flow"
)

// captureSender keeps a copy of every datagram it is given.
type captureSender struct {
	sent [][]byte
	err  error
}

func (s *captureSender) Send(b []byte) error {
	s.sent = append(s.sent, append([]byte(nil), b...))
	return s.err
}

func (s *captureSender) decoded(t *testing.T) []Datagram {
	t.Helper()
	out := make([]Datagram, 0, len(s.sent))
	for _, b := range s.sent {
		dg, err := Decode(b)
		require.NoError(t, err)
		out = append(out, dg)
	}
	return out
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func flows(n int) []flow.Record {
	out := make([]flow.Record, n)
	for i := range out {
		out[i] = flow.Record{
			SrcAddr: netip.AddrFrom4([4]byte{10, 0, byte(i >> 8), byte(i)}),
			DstAddr: netip.MustParseAddr("10.255.0.1"),
			Packets: 1,
			Octets:  64,
			SrcPort: uint16(i),
			DstPort: 53,
			Proto:   17,
		}
	}
	return out
}

func testStamp() Stamp {
	start := time.Unix(1700000000, 0)
	return Stamp{Start: start, Now: start.Add(90*time.Second + 250*time.Millisecond + 1234)}
}

func TestBatcherSplitsIntoChunks(t *testing.T) {
	sender := &captureSender{}
	b := NewBatcher(sender, BatcherOptions{})

	n := b.Export(flows(45), testStamp())
	assert.Equal(t, 2, n)

	got := sender.decoded(t)
	require.Len(t, got, 2)
	assert.Equal(t, uint16(30), got[0].Header.Count)
	assert.Equal(t, uint16(15), got[1].Header.Count)
	assert.Equal(t, got[0].Header.FlowSequence+15, got[1].Header.FlowSequence)
	assert.Equal(t, uint32(30), got[0].Header.FlowSequence)
	assert.Equal(t, uint32(45), b.Sequence())

	// records keep their order across chunks
	assert.Equal(t, uint16(0), got[0].Records[0].SrcPort)
	assert.Equal(t, uint16(29), got[0].Records[29].SrcPort)
	assert.Equal(t, uint16(30), got[1].Records[0].SrcPort)
	assert.Equal(t, uint16(44), got[1].Records[14].SrcPort)
}

func TestBatcherHeaderFields(t *testing.T) {
	sender := &captureSender{}
	b := NewBatcher(sender, BatcherOptions{EngineType: 3, EngineID: 7, SamplingInterval: 10})

	stamp := testStamp()
	b.Export(flows(1), stamp)

	got := sender.decoded(t)
	require.Len(t, got, 1)
	h := got[0].Header
	assert.Equal(t, uint16(Version), h.Version)
	assert.Equal(t, uint16(1), h.Count)
	assert.Equal(t, uint32(90250), h.SysUptime)
	assert.Equal(t, uint32(1700000090), h.UnixSecs)
	assert.Equal(t, uint32(250001234), h.UnixNsecs)
	assert.Equal(t, uint32(1), h.FlowSequence)
	assert.Equal(t, uint8(3), h.EngineType)
	assert.Equal(t, uint8(7), h.EngineID)
	assert.Equal(t, uint16(10), h.SamplingInterval)
}

func TestBatcherBatchSizes(t *testing.T) {
	tests := []struct {
		records int
		counts  []uint16
	}{
		{0, nil},
		{1, []uint16{1}},
		{30, []uint16{30}},
		{31, []uint16{30, 1}},
		{61, []uint16{30, 30, 1}},
	}
	for _, tt := range tests {
		sender := &captureSender{}
		b := NewBatcher(sender, BatcherOptions{})
		b.Export(flows(tt.records), testStamp())

		var counts []uint16
		var seq uint32
		for _, dg := range sender.decoded(t) {
			counts = append(counts, dg.Header.Count)
			seq += uint32(dg.Header.Count)
			assert.Equal(t, seq, dg.Header.FlowSequence, "cumulative count through chunk")
		}
		assert.Equal(t, tt.counts, counts, "records=%d", tt.records)
	}
}

func TestBatcherSequenceAcrossCalls(t *testing.T) {
	sender := &captureSender{}
	b := NewBatcher(sender, BatcherOptions{})

	b.Export(flows(2), testStamp())
	b.Export(flows(5), testStamp())

	got := sender.decoded(t)
	require.Len(t, got, 2)
	assert.Equal(t, uint32(2), got[0].Header.FlowSequence)
	assert.Equal(t, uint32(7), got[1].Header.FlowSequence)
}

func TestBatcherSendFailureAdvancesSequence(t *testing.T) {
	sender := new(MockSender)
	sender.On("Send", mock.Anything).Return(errors.New("connection refused")).Twice()
	sender.On("Send", mock.Anything).Return(nil).Once()

	b := NewBatcher(sender, BatcherOptions{})
	assert.Equal(t, 2, b.Export(flows(31), testStamp()))
	assert.Equal(t, uint32(31), b.Sequence())

	assert.Equal(t, 1, b.Export(flows(1), testStamp()))
	assert.Equal(t, uint32(32), b.Sequence())

	stats := b.Stats()
	assert.Equal(t, uint64(2), stats.SendFailures)
	assert.Equal(t, uint64(1), stats.Datagrams)
	assert.Equal(t, uint64(32), stats.Records)
	sender.AssertExpectations(t)

	last := sender.Calls[2].Arguments.Get(0).([]byte)
	dg, err := Decode(last)
	require.NoError(t, err)
	assert.Equal(t, uint32(32), dg.Header.FlowSequence)
}

func TestStampUptime(t *testing.T) {
	start := time.Unix(100, 0)
	assert.Equal(t, uint32(0), Stamp{Start: start, Now: start}.Uptime())
	assert.Equal(t, uint32(1500), Stamp{Start: start, Now: start.Add(1500 * time.Millisecond)}.Uptime())
	assert.Equal(t, uint32(0), Stamp{Start: start, Now: start.Add(-time.Second)}.Uptime())
}
