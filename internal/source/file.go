package source

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/nfprobe/internal/core"
)

// Stdin is the file name that selects standard input.
const Stdin = "-"

const (
	pcapngMagic    = 0x0A0D0D0A
	defaultSnapLen = 262144
)

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// FileSource reads a pcap or pcapng capture with pcapgo, without libpcap.
type FileSource struct {
	path   string
	closer io.Closer // nil for stdin
	reader packetReader
	filter *packetFilter
	format string
}

// OpenFile opens a capture file, "-" meaning stdin. The format is detected
// from the magic number. A non-empty filter is applied in user space.
func OpenFile(path, filter string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("capture file path is required")
	}

	var (
		in     io.Reader
		closer io.Closer
	)
	if path == Stdin {
		in = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
		}
		in, closer = f, f
	}

	s, err := newFileSource(path, in, filter)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	s.closer = closer
	return s, nil
}

// NewReaderSource reads a capture from r. It is OpenFile without the file.
func NewReaderSource(r io.Reader, filter string) (*FileSource, error) {
	return newFileSource("reader", r, filter)
}

func newFileSource(path string, in io.Reader, filter string) (*FileSource, error) {
	br := bufio.NewReaderSize(in, 64*1024)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header from %s: %w", path, err)
	}

	s := &FileSource{path: path}
	if binary.BigEndian.Uint32(magic) == pcapngMagic {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcapng %s: %w", path, err)
		}
		s.reader, s.format = ng, "pcapng"
	} else {
		r, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcap %s: %w", path, err)
		}
		s.reader, s.format = r, "pcap"
	}

	if filter != "" {
		pf, err := newPacketFilter(s.reader.LinkType(), defaultSnapLen, filter)
		if err != nil {
			return nil, err
		}
		s.filter = pf
	}

	slog.Info("capture file opened", "path", path, "format", s.format, "link_type", s.reader.LinkType().String())
	return s, nil
}

// Next returns the next packet accepted by the filter. A capture cut short
// in the middle of a record ends the stream like a clean end of file.
func (s *FileSource) Next(ctx context.Context) (core.RawPacket, error) {
	for {
		if done(ctx) {
			return core.RawPacket{}, io.EOF
		}

		data, ci, err := s.reader.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return core.RawPacket{}, io.EOF
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				slog.Warn("capture file truncated", "path", s.path)
				return core.RawPacket{}, io.EOF
			}
			return core.RawPacket{}, fmt.Errorf("failed to read packet from %s: %w", s.path, err)
		}

		if s.filter != nil && !s.filter.match(data) {
			continue
		}
		return toRawPacket(data, ci), nil
	}
}

// LinkType returns the link type declared by the capture.
func (s *FileSource) LinkType() layers.LinkType {
	return s.reader.LinkType()
}

// Format returns "pcap" or "pcapng".
func (s *FileSource) Format() string {
	return s.format
}

// Close closes the underlying file. Stdin is left open.
func (s *FileSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
