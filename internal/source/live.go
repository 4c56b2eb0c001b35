package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"firestige.xyz/nfprobe/internal/core"
)

const defaultPollTimeout = 100 * time.Millisecond

// LiveSource captures from an interface through libpcap.
type LiveSource struct {
	iface  string
	handle *pcap.Handle
}

// OpenLive activates a libpcap handle on cfg.Interface.
func OpenLive(cfg LiveConfig) (*LiveSource, error) {
	if cfg.Interface == "" {
		return nil, fmt.Errorf("pcap: interface is required")
	}
	cfg = liveDefaults(cfg)

	inactive, err := pcap.NewInactiveHandle(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("pcap: failed to create handle on %s: %w", cfg.Interface, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(cfg.SnapLen); err != nil {
		return nil, fmt.Errorf("pcap: snaplen %d: %w", cfg.SnapLen, err)
	}
	if err := inactive.SetPromisc(cfg.Promiscuous); err != nil {
		return nil, fmt.Errorf("pcap: promiscuous mode: %w", err)
	}
	if err := inactive.SetTimeout(cfg.Timeout); err != nil {
		return nil, fmt.Errorf("pcap: timeout: %w", err)
	}
	if cfg.BufferSizeMB > 0 {
		if err := inactive.SetBufferSize(cfg.BufferSizeMB * 1024 * 1024); err != nil {
			return nil, fmt.Errorf("pcap: buffer size: %w", err)
		}
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("pcap: failed to activate %s: %w", cfg.Interface, err)
	}

	if cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("pcap: failed to set BPF filter %q: %w", cfg.BPFFilter, err)
		}
		slog.Debug("BPF filter applied", "interface", cfg.Interface, "filter", cfg.BPFFilter)
	}

	slog.Info("pcap capture started",
		"interface", cfg.Interface,
		"snap_len", cfg.SnapLen,
		"promiscuous", cfg.Promiscuous)

	return &LiveSource{iface: cfg.Interface, handle: handle}, nil
}

func liveDefaults(cfg LiveConfig) LiveConfig {
	if cfg.SnapLen <= 0 {
		cfg.SnapLen = defaultSnapLen
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPollTimeout
	}
	return cfg
}

// Next blocks until a packet arrives or ctx is done. Read timeouts only
// serve to notice cancellation.
func (s *LiveSource) Next(ctx context.Context) (core.RawPacket, error) {
	for {
		if done(ctx) {
			slog.Info("pcap capture stopped", "interface", s.iface)
			return core.RawPacket{}, io.EOF
		}

		data, ci, err := s.handle.ReadPacketData()
		switch {
		case err == nil:
			return toRawPacket(data, ci), nil
		case errors.Is(err, pcap.NextErrorTimeoutExpired):
			continue
		case errors.Is(err, io.EOF), errors.Is(err, pcap.NextErrorNoMorePackets):
			return core.RawPacket{}, io.EOF
		default:
			if ctx.Err() != nil {
				return core.RawPacket{}, io.EOF
			}
			return core.RawPacket{}, fmt.Errorf("pcap: read on %s: %w", s.iface, err)
		}
	}
}

// LinkType returns the link type of the interface.
func (s *LiveSource) LinkType() layers.LinkType {
	return s.handle.LinkType()
}

// Stats returns libpcap's receive and drop counters.
func (s *LiveSource) Stats() (received, dropped uint64, err error) {
	st, err := s.handle.Stats()
	if err != nil {
		return 0, 0, err
	}
	return uint64(st.PacketsReceived), uint64(st.PacketsDropped + st.PacketsIfDropped), nil
}

// Close releases the handle.
func (s *LiveSource) Close() error {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	return nil
}
