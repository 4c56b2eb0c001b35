//go:build !linux

package source

import (
	"context"
	"errors"

	"github.com/google/gopacket/layers"

	"firestige.xyz/nfprobe/internal/core"
)

// AFPacketSource is only available on linux.
type AFPacketSource struct{}

// OpenAFPacket always fails outside linux.
func OpenAFPacket(LiveConfig) (*AFPacketSource, error) {
	return nil, errors.New("afpacket: not supported on this platform")
}

func (s *AFPacketSource) Next(context.Context) (core.RawPacket, error) {
	return core.RawPacket{}, errors.New("afpacket: not supported on this platform")
}

func (s *AFPacketSource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (s *AFPacketSource) Close() error { return nil }
