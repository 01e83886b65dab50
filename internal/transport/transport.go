// Package transport provides abstractions for outbound connection
// establishment.  Dialers handle the "how" of reaching a remote
// endpoint over TCP or UDP, independent of what happens over the
// connection (which is the socket layer's job).
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  Implementations are the
// plain TCP and connected-UDP dialers; both are stateless.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}
