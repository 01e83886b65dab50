// Package neterr provides domain-specific error types for SocketBase.
//
// These types carry structured context (operation, address, whether the
// socket is still usable) that the worker loops use to decide between
// continuing and shutting down, and that callers receive through the
// socket-error callback.
package neterr

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	ErrAlreadyActive       = errors.New("connection already active")
	ErrNotConnected        = errors.New("not connected")
	ErrNoIPv4              = errors.New("no IPv4 address found")
)

// ── Structured error types ───────────────────────────────────────────

// SocketError represents a failure in a socket operation.
type SocketError struct {
	Op       string // operation: "resolve", "dial", "read", "write", "close"
	Addr     string // network address involved
	Err      error  // underlying error
	Unusable bool   // whether the socket can no longer carry traffic
}

func (e *SocketError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Unusable {
		s += " (socket unusable)"
	}
	return s
}

func (e *SocketError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field or flag name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := "config: " + e.Field
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a SocketError, automatically classifying whether the
// underlying error leaves the socket unusable.
func Wrap(op, addr string, err error) *SocketError {
	return &SocketError{
		Op:       op,
		Addr:     addr,
		Err:      err,
		Unusable: classifyUnusable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsUnusable reports whether err means the socket can no longer carry
// traffic and the worker loops should exit.
func IsUnusable(err error) bool {
	if err == nil {
		return false
	}
	var se *SocketError
	if errors.As(err, &se) {
		return se.Unusable
	}
	return classifyUnusable(err)
}

// IsClosing reports whether err is an expected consequence of the
// connection being torn down locally. Such errors are swallowed during
// shutdown instead of being surfaced to callers.
func IsClosing(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsRetryable reports whether a connection attempt that failed with err
// is worth repeating. The socket itself never retries; this exists for
// callers that wrap Connect in their own retry policy.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnsupportedProtocol) || errors.Is(err, ErrAlreadyActive) {
		return false
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	return false
}

// classifyUnusable inspects standard library error types. The default
// for unrecognized errors is unusable: in Go a failed read or write on
// a stream socket is final unless it was a timeout or a transient
// datagram condition.
func classifyUnusable(err error) bool {
	if err == nil {
		return false
	}
	// Remote closed, or the connection was torn down under us.
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// Deadline expiry leaves the socket intact.
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return false
	}
	// Connected-UDP sockets surface ICMP unreachable as ECONNREFUSED on
	// a later read; the socket still works once the remote comes up.
	if errors.Is(err, syscall.ECONNREFUSED) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Temporary() { //nolint:staticcheck
		return false
	}
	return true
}
