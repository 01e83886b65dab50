package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// UDPDialer establishes connected UDP sockets, optionally binding to a
// specific source port.  The socket is "connected" in the UDP sense:
// reads only accept datagrams from the dialed remote, and ICMP errors
// for that remote surface on later operations instead of being lost.
type UDPDialer struct {
	Timeout   time.Duration
	LocalPort int // optional source-port binding (0 = ephemeral)
}

// Dial associates a UDP socket with address.  No packets are exchanged;
// a returned connection does not prove the remote exists.
func (d *UDPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}

	if d.LocalPort > 0 {
		local := fmt.Sprintf(":%d", d.LocalPort)
		a, err := net.ResolveUDPAddr(network, local)
		if err != nil {
			return nil, fmt.Errorf("resolve local addr: %w", err)
		}
		dialer.LocalAddr = a
	}

	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless UDP dialers.
func (d *UDPDialer) Close() error { return nil }
