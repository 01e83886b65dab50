package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSendBufferSize is the kernel send buffer (SO_SNDBUF)
	// requested on connect.
	DefaultSendBufferSize = 8192

	// DefaultRecvBufferSize is the kernel receive buffer (SO_RCVBUF)
	// requested on connect.
	DefaultRecvBufferSize = 65535

	// DefaultReadChunkSize is the size of the pooled buffer handed to
	// every read, and therefore the largest delivery the receive loop
	// can take in one pass.
	DefaultReadChunkSize = 8192

	// DefaultSendPollInterval is the pause between queue drain passes
	// of the send loop.
	DefaultSendPollInterval = 10 * time.Millisecond

	// DefaultReadPollInterval is the pause after a read that returned
	// no data.
	DefaultReadPollInterval = 1 * time.Millisecond

	// DefaultIOTimeout bounds each individual read and write, and the
	// initial dial.
	DefaultIOTimeout = 30 * time.Second
)
