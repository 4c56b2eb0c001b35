//go:build linux

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/nfprobe/internal/core"
)

const defaultRingSizeMB = 64

// AFPacketSource captures from an interface through a TPACKET_V3 ring.
type AFPacketSource struct {
	iface  string
	handle *afpacket.TPacket
}

// OpenAFPacket maps an AF_PACKET ring on cfg.Interface. The BPF filter is
// compiled with libpcap and attached to the socket.
func OpenAFPacket(cfg LiveConfig) (*AFPacketSource, error) {
	if cfg.Interface == "" {
		return nil, fmt.Errorf("afpacket: interface is required")
	}
	cfg = liveDefaults(cfg)
	if cfg.BufferSizeMB <= 0 {
		cfg.BufferSizeMB = defaultRingSizeMB
	}

	frameSize, blockSize, numBlocks, err := ringSize(cfg.BufferSizeMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("afpacket: %w", err)
	}

	handle, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(cfg.Timeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("afpacket: failed to create TPacket handle on %s: %w", cfg.Interface, err)
	}

	if cfg.BPFFilter != "" {
		raw, err := compileBPF(layers.LinkTypeEthernet, cfg.SnapLen, cfg.BPFFilter)
		if err != nil {
			handle.Close()
			return nil, fmt.Errorf("afpacket: %w", err)
		}
		if err := handle.SetBPF(raw); err != nil {
			handle.Close()
			return nil, fmt.Errorf("afpacket: failed to set BPF: %w", err)
		}
		slog.Debug("BPF filter applied", "interface", cfg.Interface, "filter", cfg.BPFFilter)
	}

	slog.Info("afpacket capture started",
		"interface", cfg.Interface,
		"frame_size", frameSize,
		"block_size", blockSize,
		"num_blocks", numBlocks)

	return &AFPacketSource{iface: cfg.Interface, handle: handle}, nil
}

// Next blocks until a packet arrives or ctx is done. Data points into the
// ring and is only valid until the following call.
func (s *AFPacketSource) Next(ctx context.Context) (core.RawPacket, error) {
	for {
		if done(ctx) {
			slog.Info("afpacket capture stopped", "interface", s.iface)
			return core.RawPacket{}, io.EOF
		}

		data, ci, err := s.handle.ZeroCopyReadPacketData()
		if err == nil {
			return toRawPacket(data, ci), nil
		}
		if ctx.Err() != nil {
			return core.RawPacket{}, io.EOF
		}
		if errors.Is(err, afpacket.ErrTimeout) || errors.Is(err, afpacket.ErrPoll) {
			continue
		}
		return core.RawPacket{}, fmt.Errorf("afpacket: read on %s: %w", s.iface, err)
	}
}

// LinkType is always Ethernet for a raw AF_PACKET socket.
func (s *AFPacketSource) LinkType() layers.LinkType {
	return layers.LinkTypeEthernet
}

// Close unmaps the ring. It must not be called concurrently with Next.
func (s *AFPacketSource) Close() error {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	return nil
}
