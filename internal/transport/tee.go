package transport

import "log/slog"

// Sender sends one encoded datagram.
type Sender interface {
	Send(b []byte) error
}

// Tee sends every datagram to a primary sender and a set of mirrors. Only
// the primary's error is returned; mirror failures are logged.
type Tee struct {
	primary Sender
	mirrors []Sender
}

// NewTee returns a Tee, or primary itself when there are no mirrors.
func NewTee(primary Sender, mirrors ...Sender) Sender {
	if len(mirrors) == 0 {
		return primary
	}
	return &Tee{primary: primary, mirrors: mirrors}
}

// Send implements Sender.
func (t *Tee) Send(b []byte) error {
	err := t.primary.Send(b)
	for _, m := range t.mirrors {
		if merr := m.Send(b); merr != nil {
			slog.Warn("mirror send failed", "error", merr)
		}
	}
	return err
}
