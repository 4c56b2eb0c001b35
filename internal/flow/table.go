package flow

import (
	"log/slog"
	"time"

	"firestige.xyz/nfprobe/internal/core"
	"firestige.xyz/nfprobe/internal/metrics"
)

// TableConfig configures a Table.
type TableConfig struct {
	ActiveTimeout   time.Duration // max lifetime of a flow, measured from its first packet
	InactiveTimeout time.Duration // max idle gap, measured from its last packet
	Capacity        int           // max live records; values < 1 are treated as 1
	Octets          OctetSource
}

// Stats counts table activity since creation.
type Stats struct {
	Created  uint64
	Updated  uint64
	Active   uint64 // retired by active timeout
	Inactive uint64 // retired by inactive timeout
	Evicted  uint64 // retired for capacity
	Flushed  uint64 // retired by Drain
}

// Table is the ordered collection of live flow records. Records are kept in
// insertion order; every processed packet scans the whole table once.
//
// A Table is not safe for concurrent use.
type Table struct {
	active   uint32
	inactive uint32
	capacity int
	octets   OctetSource

	records []Record
	stats   Stats
}

// NewTable creates an empty table.
func NewTable(cfg TableConfig) *Table {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	return &Table{
		active:   seconds(cfg.ActiveTimeout),
		inactive: seconds(cfg.InactiveTimeout),
		capacity: cfg.Capacity,
		octets:   cfg.Octets,
		records:  make([]Record, 0, cfg.Capacity+1),
	}
}

func seconds(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d / time.Second)
}

// Process accounts one packet arriving at now (seconds since the first packet)
// and returns the records retired while doing so, in retirement order:
// timed-out records in table order first, then the capacity victim if any.
//
// Packets that are not IPv4 leave the table untouched and return nil.
func (t *Table) Process(pkt core.ParsedPacket, now uint32) []Record {
	ip, ok := pkt.IPv4()
	if !ok {
		return nil
	}
	key, _ := KeyOf(&pkt)

	var flags uint8
	if tcp, ok := pkt.TCP(); ok {
		flags = tcp.Flags
	}
	octets := t.octets.octets(&pkt, ip)

	var retired []Record
	matched := -1
	kept := t.records[:0]
	for i := range t.records {
		r := t.records[i]
		if reason := t.expired(&r, now); reason != "" {
			retired = append(retired, r)
			t.countRetired(reason)
			continue
		}
		if matched < 0 && r.Key() == key {
			matched = len(kept)
		}
		kept = append(kept, r)
	}
	clear(t.records[len(kept):])
	t.records = kept

	if matched >= 0 {
		t.records[matched].add(octets, flags, now)
		t.stats.Updated++
		metrics.FlowsActive.Set(float64(len(t.records)))
		return retired
	}

	t.records = append(t.records, newRecord(key, octets, flags, now))
	t.stats.Created++
	metrics.FlowsCreatedTotal.Inc()
	slog.Debug("flow created", "flow", key, "live", len(t.records))

	if len(t.records) > t.capacity {
		victim := t.records[0]
		copy(t.records, t.records[1:])
		t.records[len(t.records)-1] = Record{}
		t.records = t.records[:len(t.records)-1]
		retired = append(retired, victim)
		t.countRetired(metrics.ReasonCapacity)
	}

	metrics.FlowsActive.Set(float64(len(t.records)))
	return retired
}

// expired reports why r must be retired at now, or "" if it stays live.
func (t *Table) expired(r *Record, now uint32) string {
	if since(now, r.First) >= t.active {
		return metrics.ReasonActive
	}
	if since(now, r.Last) >= t.inactive {
		return metrics.ReasonInactive
	}
	return ""
}

// since is now-then, clamped at zero when timestamps go backwards.
func since(now, then uint32) uint32 {
	if now < then {
		return 0
	}
	return now - then
}

func (t *Table) countRetired(reason string) {
	switch reason {
	case metrics.ReasonActive:
		t.stats.Active++
	case metrics.ReasonInactive:
		t.stats.Inactive++
	case metrics.ReasonCapacity:
		t.stats.Evicted++
	case metrics.ReasonFlush:
		t.stats.Flushed++
	}
	metrics.FlowsRetiredTotal.WithLabelValues(reason).Inc()
}

// Drain retires every live record regardless of age, in insertion order, and
// leaves the table empty.
func (t *Table) Drain() []Record {
	if len(t.records) == 0 {
		return nil
	}
	out := make([]Record, len(t.records))
	copy(out, t.records)
	for range out {
		t.countRetired(metrics.ReasonFlush)
	}
	clear(t.records)
	t.records = t.records[:0]
	metrics.FlowsActive.Set(0)
	return out
}

// Len returns the number of live records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns a copy of the live records in insertion order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Stats returns the activity counters.
func (t *Table) Stats() Stats {
	return t.stats
}
