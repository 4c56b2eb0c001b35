// Package transport delivers encoded export datagrams to the collector.
package transport

import (
	"fmt"
	"log/slog"
	"net"
	"time"
)

const defaultWriteTimeout = 5 * time.Second

// UDP is a connected UDP socket to one collector.
type UDP struct {
	conn         *net.UDPConn
	remote       *net.UDPAddr
	writeTimeout time.Duration
}

// DialUDP resolves address (host:port, host may be a name, IPv4 or IPv6
// literal) and connects a UDP socket to it.
func DialUDP(address string) (*UDP, error) {
	remote, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collector %s: %w", address, err)
	}

	conn, err := net.DialUDP("udp", nil, remote)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to collector %s: %w", address, err)
	}

	slog.Info("collector connected", "address", address, "remote", remote.String(), "local", conn.LocalAddr().String())
	return &UDP{conn: conn, remote: remote, writeTimeout: defaultWriteTimeout}, nil
}

// SetWriteTimeout bounds the time a single Send may block.
func (u *UDP) SetWriteTimeout(d time.Duration) {
	u.writeTimeout = d
}

// Send writes b as one datagram.
func (u *UDP) Send(b []byte) error {
	if u.writeTimeout > 0 {
		if err := u.conn.SetWriteDeadline(time.Now().Add(u.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	n, err := u.conn.Write(b)
	if err != nil {
		return fmt.Errorf("failed to send to %s: %w", u.remote, err)
	}
	if n != len(b) {
		return fmt.Errorf("short write to %s: %d of %d bytes", u.remote, n, len(b))
	}
	return nil
}

// RemoteAddr returns the resolved collector address.
func (u *UDP) RemoteAddr() net.Addr {
	return u.remote
}

// Close closes the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
