package netflow

import (
	"log/slog"

	"firestige.xyz/nfprobe/internal/flow"
	"firestige.xyz/nfprobe/internal/metrics"
)

// Sender delivers one encoded datagram, best effort. b is only valid for the
// duration of the call.
type Sender interface {
	Send(b []byte) error
}

// BatcherOptions sets the engine fields of every header.
type BatcherOptions struct {
	EngineType       uint8
	EngineID         uint8
	SamplingMode     uint8
	SamplingInterval uint16
}

// BatcherStats counts export activity since creation.
type BatcherStats struct {
	Datagrams    uint64 // handed to the sender without error
	SendFailures uint64
	Records      uint64 // records placed into datagrams, sent or not
}

// Batcher turns retired flow records into datagrams of at most
// MaxRecordsPerDatagram records and hands them to a Sender. It owns the
// flow sequence counter.
//
// A Batcher is not safe for concurrent use.
type Batcher struct {
	sender   Sender
	opts     BatcherOptions
	sequence uint32
	buf      []byte
	stats    BatcherStats
}

// NewBatcher creates a batcher writing to sender.
func NewBatcher(sender Sender, opts BatcherOptions) *Batcher {
	return &Batcher{
		sender: sender,
		opts:   opts,
		buf:    make([]byte, 0, MaxDatagramSize),
	}
}

// Export sends records in chunks of MaxRecordsPerDatagram, all but the last
// chunk full, and returns the number of datagrams built. Nothing is kept
// pending between calls. A failed send is logged and counted; the sequence
// counter advances regardless.
func (b *Batcher) Export(records []flow.Record, stamp Stamp) int {
	n := 0
	for len(records) > 0 {
		size := min(len(records), MaxRecordsPerDatagram)
		b.send(records[:size], stamp)
		records = records[size:]
		n++
	}
	return n
}

func (b *Batcher) send(chunk []flow.Record, stamp Stamp) {
	b.sequence += uint32(len(chunk))

	dg := Datagram{
		Header: Header{
			Version:          Version,
			Count:            uint16(len(chunk)),
			SysUptime:        stamp.Uptime(),
			UnixSecs:         uint32(stamp.Now.Unix()),
			UnixNsecs:        uint32(stamp.Now.Nanosecond()),
			FlowSequence:     b.sequence,
			EngineType:       b.opts.EngineType,
			EngineID:         b.opts.EngineID,
			SamplingMode:     b.opts.SamplingMode,
			SamplingInterval: b.opts.SamplingInterval,
		},
		Records: make([]Record, len(chunk)),
	}
	for i := range chunk {
		dg.Records[i] = FromFlow(chunk[i])
	}

	b.stats.Records += uint64(len(chunk))
	metrics.RecordsExportedTotal.Add(float64(len(chunk)))
	metrics.DatagramRecords.Observe(float64(len(chunk)))

	buf, err := dg.AppendBinary(b.buf[:0])
	if err != nil {
		// unreachable with chunks of 1..MaxRecordsPerDatagram
		slog.Error("netflow encode failed", "error", err, "count", len(chunk))
		return
	}
	b.buf = buf

	if err := b.sender.Send(buf); err != nil {
		b.stats.SendFailures++
		metrics.SendFailuresTotal.Inc()
		slog.Warn("netflow send failed", "error", err, "count", len(chunk), "sequence", b.sequence)
		return
	}
	b.stats.Datagrams++
	metrics.DatagramsSentTotal.Inc()
	slog.Debug("netflow datagram sent", "count", len(chunk), "sequence", b.sequence, "bytes", len(buf))
}

// Sequence returns the number of records exported so far.
func (b *Batcher) Sequence() uint32 {
	return b.sequence
}

// Stats returns the activity counters.
func (b *Batcher) Stats() BatcherStats {
	return b.stats
}
