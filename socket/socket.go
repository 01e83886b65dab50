// Package socket implements an event-driven client for a single
// framed-protocol connection over TCP or UDP.
//
// A CommandSocket owns one connection at a time.  Outbound messages
// are queued and drained by a dedicated send loop; inbound data is
// read by a dedicated receive loop using pooled buffers.  Connection
// lifecycle events, inbound packets and socket errors are delivered
// through registered callbacks, which run synchronously on the worker
// goroutines.
//
// The wire format is a 4-byte big-endian signed command identifier
// followed by an opaque payload.  There is no length field: each
// network delivery is treated as exactly one frame.  That holds
// naturally for UDP datagrams; over TCP it requires the remote to
// write one frame per delivery, which is a constraint of the deployed
// protocol rather than something this package can enforce.
package socket

import (
	"time"
)

// Protocol selects the transport for Connect.
type Protocol string

const (
	ProtoTCP Protocol = "tcp"
	ProtoUDP Protocol = "udp"
)

// Network returns the network name understood by the net package.
func (p Protocol) Network() string { return string(p) }

// supported reports whether Connect can dial this protocol.
func (p Protocol) supported() bool { return p == ProtoTCP || p == ProtoUDP }

// Packet is one decoded inbound frame.  Payload aliases the receive
// buffer and is only valid until the callback returns; callbacks that
// retain it must copy.
type Packet struct {
	Command int32
	Payload []byte
}

// Diagnostics receives problem reports and progress noise from the
// socket.  *util.Logger satisfies it.
type Diagnostics interface {
	Error(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Trace(format string, args ...interface{})
}

// Socket is the contract shared by socket variants.  CommandSocket is
// the framed-protocol implementation; alternative framings implement
// the same surface.
type Socket interface {
	// Connect begins a connection attempt without blocking on the
	// network.  Later failures are reported through diagnostics.
	Connect(host string, port int, proto Protocol) error

	// Stop tears down the active lifecycle and joins the workers.
	Stop()

	// IsConnected reports whether traffic can currently flow.
	IsConnected() bool

	// CanSend reports whether the encoded frame could be queued now.
	CanSend(frame []byte) bool

	// SendMessage frames payload under command and queues it.
	SendMessage(command int32, payload []byte) bool

	// SetTimeout replaces the per-operation I/O deadline.
	SetTimeout(d time.Duration)
}

// Connection states, tracked atomically on the manager.
const (
	stateDisconnected int32 = iota
	stateConnecting
	stateConnected
)
