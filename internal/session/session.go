// Package session records the lifetime of a single established
// connection.  A session exists from the moment the dial succeeds
// until the disconnect notification fires; it gives log lines and
// stats a stable identifier to correlate on.
package session

import (
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Info describes one established connection.
type Info struct {
	ID         string // short unique identifier, stable for the lifecycle
	Protocol   string // "tcp" or "udp"
	RemoteAddr string
	LocalAddr  string
	StartedAt  time.Time
}

// Begin creates the record for a connection that just completed its
// dial. The id is the first group of a random UUID, which is short
// enough for log lines and unique enough for correlating them.
func Begin(protocol string, conn net.Conn) *Info {
	id := uuid.NewString()
	if len(id) > 8 {
		id = id[:8]
	}
	info := &Info{
		ID:        id,
		Protocol:  protocol,
		StartedAt: time.Now(),
	}
	if conn != nil {
		if ra := conn.RemoteAddr(); ra != nil {
			info.RemoteAddr = ra.String()
		}
		if la := conn.LocalAddr(); la != nil {
			info.LocalAddr = la.String()
		}
	}
	return info
}

// Uptime returns how long the connection has been established.
func (i *Info) Uptime() time.Duration {
	if i == nil {
		return 0
	}
	return time.Since(i.StartedAt)
}

// String renders the session for log lines, e.g.
// "3f2a9c41 tcp 10.0.0.5:51234 -> 10.0.0.9:4000".
func (i *Info) String() string {
	if i == nil {
		return "<no session>"
	}
	return fmt.Sprintf("%s %s %s -> %s", i.ID, i.Protocol, i.LocalAddr, i.RemoteAddr)
}
