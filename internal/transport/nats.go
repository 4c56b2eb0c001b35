package transport

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS publishes every datagram, unchanged, to one NATS subject.
type NATS struct {
	nc      *nats.Conn
	subject string
}

// DialNATS connects to the NATS server at url.
func DialNATS(url, subject string) (*NATS, error) {
	if subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}
	nc, err := nats.Connect(url,
		nats.Name("nfprobe"),
		nats.Timeout(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats %s: %w", url, err)
	}
	slog.Info("nats connected", "url", nc.ConnectedUrl(), "subject", subject)
	return &NATS{nc: nc, subject: subject}, nil
}

// Send publishes b. The client copies b into its write buffer.
func (n *NATS) Send(b []byte) error {
	if err := n.nc.Publish(n.subject, b); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.subject, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (n *NATS) Close() error {
	return n.nc.Drain()
}
