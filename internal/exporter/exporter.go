// Package exporter implements the run loop: it drains a packet source through
// the decoder and the flow table, exports retired flows, and flushes the
// table at end of stream.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"firestige.xyz/nfprobe/internal/core"
	"firestige.xyz/nfprobe/internal/core/decoder"
	"firestige.xyz/nfprobe/internal/flow"
	"firestige.xyz/nfprobe/internal/metrics"
	"firestige.xyz/nfprobe/internal/netflow"
	"firestige.xyz/nfprobe/internal/source"
)

// Transport sends one encoded datagram to the collector. Failures are
// logged and counted, never retried.
type Transport interface {
	Send(b []byte) error
}

// Options configures a run.
type Options struct {
	ActiveTimeout   time.Duration
	InactiveTimeout time.Duration
	CacheSize       int
	Octets          flow.OctetSource
	Export          netflow.BatcherOptions
	// Decoder defaults to decoder.NewStandardDecoder().
	Decoder decoder.Decoder
}

// Summary describes a finished run.
type Summary struct {
	Packets       uint64
	ParseFailures uint64
	NonIPv4       uint64
	FlowsCreated  uint64
	FlowsExported uint64
	Datagrams     uint64
	SendFailures  uint64
	// Captured is the capture time between the first and the last packet.
	Captured time.Duration
}

// LogValue renders the summary as one group of attributes.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("packets", s.Packets),
		slog.Uint64("parse_failures", s.ParseFailures),
		slog.Uint64("non_ipv4", s.NonIPv4),
		slog.Uint64("flows_created", s.FlowsCreated),
		slog.Uint64("flows_exported", s.FlowsExported),
		slog.Uint64("datagrams", s.Datagrams),
		slog.Uint64("send_failures", s.SendFailures),
		slog.Duration("captured", s.Captured),
	)
}

// loop holds the state of one run. It is owned by the calling goroutine.
type loop struct {
	src     source.Source
	decoder decoder.Decoder
	table   *flow.Table
	batcher *netflow.Batcher

	started bool
	start   time.Time // arrival of the first packet, the uptime baseline
	last    time.Time // arrival of the latest packet

	packets       uint64
	parseFailures uint64
	nonIPv4       uint64
}

// Run reads src until end of stream, then exports every flow still live and
// returns. A read error other than io.EOF ends the run the same way and is
// returned wrapped. Cancelling ctx stops live sources, which then report
// end of stream.
func Run(ctx context.Context, src source.Source, tr Transport, opts Options) (Summary, error) {
	dec := opts.Decoder
	if dec == nil {
		dec = decoder.NewStandardDecoder()
	}
	l := &loop{
		src:     src,
		decoder: dec,
		table: flow.NewTable(flow.TableConfig{
			ActiveTimeout:   opts.ActiveTimeout,
			InactiveTimeout: opts.InactiveTimeout,
			Capacity:        opts.CacheSize,
			Octets:          opts.Octets,
		}),
		batcher: netflow.NewBatcher(tr, opts.Export),
	}

	slog.Info("exporter starting",
		"active_timeout", opts.ActiveTimeout,
		"inactive_timeout", opts.InactiveTimeout,
		"cache_size", opts.CacheSize,
		"octets", opts.Octets.String())

	runErr := l.drain(ctx)
	l.flush()

	return l.summary(), runErr
}

// drain processes packets until the source reports end of stream or fails.
func (l *loop) drain(ctx context.Context) error {
	for {
		raw, err := l.src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				slog.Info("end of stream", "packets", l.packets)
				return nil
			}
			return fmt.Errorf("packet source failed after %d packets: %w", l.packets, err)
		}
		l.process(raw)
	}
}

func (l *loop) process(raw core.RawPacket) {
	l.packets++
	metrics.PacketsReadTotal.Inc()

	if !l.started {
		l.start = raw.Timestamp
		l.started = true
	}
	l.last = raw.Timestamp

	pkt, err := l.decoder.Decode(raw)
	if err != nil {
		l.parseFailures++
		metrics.ParseFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		slog.Debug("packet skipped", "error", err, "packet", l.packets)
		return
	}
	if pkt.IPVersion() != core.IPVersion4 {
		l.nonIPv4++
		metrics.NonIPv4PacketsTotal.Inc()
		return
	}

	retired := l.table.Process(pkt, l.elapsed(raw.Timestamp))
	if len(retired) > 0 {
		l.batcher.Export(retired, l.stamp())
	}
}

// flush exports every live record, stamped with the last packet's arrival.
func (l *loop) flush() {
	remaining := l.table.Drain()
	if len(remaining) == 0 {
		return
	}
	n := l.batcher.Export(remaining, l.stamp())
	slog.Info("flow table flushed", "flows", len(remaining), "datagrams", n)
}

// elapsed returns whole seconds between the first packet and ts.
func (l *loop) elapsed(ts time.Time) uint32 {
	d := ts.Sub(l.start)
	if d < 0 {
		return 0
	}
	return uint32(d / time.Second)
}

func (l *loop) stamp() netflow.Stamp {
	return netflow.Stamp{Start: l.start, Now: l.last}
}

func (l *loop) summary() Summary {
	ts := l.table.Stats()
	bs := l.batcher.Stats()
	s := Summary{
		Packets:       l.packets,
		ParseFailures: l.parseFailures,
		NonIPv4:       l.nonIPv4,
		FlowsCreated:  ts.Created,
		FlowsExported: bs.Records,
		Datagrams:     bs.Datagrams,
		SendFailures:  bs.SendFailures,
	}
	if l.started {
		s.Captured = l.last.Sub(l.start)
	}
	return s
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, core.ErrPacketTooShort):
		return "too_short"
	case errors.Is(err, core.ErrInvalidHeader):
		return "invalid_header"
	case errors.Is(err, core.ErrUnsupportedProto):
		return "unsupported_protocol"
	default:
		return "other"
	}
}
