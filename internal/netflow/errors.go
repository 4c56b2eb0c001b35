package netflow

import "errors"

// Sentinel errors returned by Datagram encoding and Decode.
var (
	ErrShortDatagram  = errors.New("netflow: datagram too short")
	ErrTrailingData   = errors.New("netflow: trailing data after records")
	ErrBadVersion     = errors.New("netflow: unsupported version")
	ErrTooManyRecords = errors.New("netflow: too many records")
	ErrEmptyBatch     = errors.New("netflow: datagram without records")
	ErrCountMismatch  = errors.New("netflow: header count does not match records")
)
