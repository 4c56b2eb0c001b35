// Package source implements packet sources: capture files (pcap, pcapng or
// stdin), libpcap live capture and AF_PACKET live capture.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/nfprobe/internal/core"
)

// Source yields captured packets one at a time.
type Source interface {
	// Next returns the next packet; RawPacket.Data is only valid until the
	// following call. io.EOF marks the end of the stream. Live sources also
	// return io.EOF once ctx is done.
	Next(ctx context.Context) (core.RawPacket, error)
	// LinkType is the link layer of the packets returned by Next.
	LinkType() layers.LinkType
	Close() error
}

// Source types accepted by Open.
const (
	TypeFile     = "file"
	TypePcap     = "pcap"
	TypeAFPacket = "afpacket"
)

// Config selects and configures a packet source.
type Config struct {
	Type string // file, pcap or afpacket
	File string // capture file path for TypeFile, "-" for stdin
	Live LiveConfig
}

// LiveConfig configures capture from a network interface.
type LiveConfig struct {
	Interface    string
	SnapLen      int
	Promiscuous  bool
	BPFFilter    string
	Timeout      time.Duration // poll timeout, bounds how long Next ignores ctx
	BufferSizeMB int
}

// Open opens the source described by cfg.
func Open(cfg Config) (Source, error) {
	var (
		src Source
		err error
	)
	switch cfg.Type {
	case TypeFile, "":
		src, err = OpenFile(cfg.File, cfg.Live.BPFFilter)
	case TypePcap:
		src, err = OpenLive(cfg.Live)
	case TypeAFPacket:
		src, err = OpenAFPacket(cfg.Live)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if lt := src.LinkType(); lt != layers.LinkTypeEthernet {
		slog.Warn("link type is not ethernet, frames will fail to decode", "link_type", lt.String())
	}
	return src, nil
}

func toRawPacket(data []byte, ci gopacket.CaptureInfo) core.RawPacket {
	return core.RawPacket{
		Data:           data,
		Timestamp:      ci.Timestamp,
		CaptureLen:     uint32(ci.CaptureLength),
		OrigLen:        uint32(ci.Length),
		InterfaceIndex: ci.InterfaceIndex,
	}
}

// done reports whether ctx has been cancelled.
func done(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
