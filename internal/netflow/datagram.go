package netflow

import (
	"fmt"
)

// Datagram is one header followed by Header.Count records.
type Datagram struct {
	Header  Header
	Records []Record
}

// Size returns the encoded size in bytes.
func (d *Datagram) Size() int {
	return HeaderSize + len(d.Records)*RecordSize
}

// Validate checks the datagram can be put on the wire.
func (d *Datagram) Validate() error {
	if d.Header.Version != Version {
		return fmt.Errorf("version %d: %w", d.Header.Version, ErrBadVersion)
	}
	if len(d.Records) == 0 {
		return ErrEmptyBatch
	}
	if len(d.Records) > MaxRecordsPerDatagram {
		return fmt.Errorf("%d records (max %d): %w", len(d.Records), MaxRecordsPerDatagram, ErrTooManyRecords)
	}
	if int(d.Header.Count) != len(d.Records) {
		return fmt.Errorf("count %d, %d records: %w", d.Header.Count, len(d.Records), ErrCountMismatch)
	}
	return nil
}

// AppendBinary appends the encoded datagram to b.
func (d *Datagram) AppendBinary(b []byte) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return b, err
	}

	off := len(b)
	b = append(b, make([]byte, d.Size())...)
	buf := b[off:]

	d.Header.put(buf[:HeaderSize])
	for i := range d.Records {
		start := HeaderSize + i*RecordSize
		d.Records[i].put(buf[start : start+RecordSize])
	}
	return b, nil
}

// MarshalBinary encodes the datagram, 24+48*count bytes.
func (d *Datagram) MarshalBinary() ([]byte, error) {
	return d.AppendBinary(make([]byte, 0, d.Size()))
}

// UnmarshalBinary decodes b into d. See Decode.
func (d *Datagram) UnmarshalBinary(b []byte) error {
	dg, err := Decode(b)
	if err != nil {
		return err
	}
	*d = dg
	return nil
}

// Decode parses one datagram. The buffer must hold exactly the header and
// the number of records it announces.
func Decode(b []byte) (Datagram, error) {
	var d Datagram
	if len(b) < HeaderSize {
		return d, fmt.Errorf("%d bytes: %w", len(b), ErrShortDatagram)
	}
	d.Header.get(b[:HeaderSize])

	if d.Header.Version != Version {
		return d, fmt.Errorf("version %d: %w", d.Header.Version, ErrBadVersion)
	}
	count := int(d.Header.Count)
	if count == 0 {
		return d, ErrEmptyBatch
	}
	if count > MaxRecordsPerDatagram {
		return d, fmt.Errorf("count %d: %w", count, ErrTooManyRecords)
	}

	want := HeaderSize + count*RecordSize
	switch {
	case len(b) < want:
		return d, fmt.Errorf("%d bytes for %d records: %w", len(b), count, ErrShortDatagram)
	case len(b) > want:
		return d, fmt.Errorf("%d extra bytes: %w", len(b)-want, ErrTrailingData)
	}

	d.Records = make([]Record, count)
	for i := range d.Records {
		start := HeaderSize + i*RecordSize
		d.Records[i].get(b[start : start+RecordSize])
	}
	return d, nil
}
