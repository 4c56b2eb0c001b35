package core

import "errors"

// Packet decoding errors. Decoders wrap these with context; match with errors.Is.
var (
	ErrPacketTooShort   = errors.New("nfprobe: packet too short")
	ErrInvalidHeader    = errors.New("nfprobe: invalid header")
	ErrUnsupportedProto = errors.New("nfprobe: unsupported protocol")
)
