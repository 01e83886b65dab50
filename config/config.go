// Package config defines the runtime configuration for a socket
// connection and the tools built on top of it.
package config

import (
	"time"

	"github.com/causeless8t/SocketBase/neterr"
)

// Config holds every tuneable for a single socket connection.  The
// socket copies the struct when Connect is called, so mutating a
// Config after connecting has no effect until the next lifecycle.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	UDP       bool          `mapstructure:"udp"`
	LocalPort int           `mapstructure:"local_port"` // optional source-port binding (0 = ephemeral)
	IOTimeout time.Duration `mapstructure:"io_timeout"` // per-operation deadline (0 = none)

	// ── Buffers ──────────────────────────────────────────────────────
	SendBufferSize int `mapstructure:"send_buffer_size"` // kernel send buffer (SO_SNDBUF)
	RecvBufferSize int `mapstructure:"recv_buffer_size"` // kernel receive buffer (SO_RCVBUF)
	ReadChunkSize  int `mapstructure:"read_chunk_size"`  // pooled buffer handed to each read

	// ── Worker pacing ────────────────────────────────────────────────
	SendPollInterval time.Duration `mapstructure:"send_poll_interval"` // pause between queue drains
	ReadPollInterval time.Duration `mapstructure:"read_poll_interval"` // pause after an empty read

	// ── Output ───────────────────────────────────────────────────────
	Verbose int `mapstructure:"verbose"`
}

// New returns a Config populated with the compiled defaults.
func New() *Config {
	return &Config{
		IOTimeout:        DefaultIOTimeout,
		SendBufferSize:   DefaultSendBufferSize,
		RecvBufferSize:   DefaultRecvBufferSize,
		ReadChunkSize:    DefaultReadChunkSize,
		SendPollInterval: DefaultSendPollInterval,
		ReadPollInterval: DefaultReadPollInterval,
	}
}

// Protocol returns the network name the configuration selects,
// "udp" or "tcp".
func (c *Config) Protocol() string {
	if c.UDP {
		return "udp"
	}
	return "tcp"
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks the socket tuneables.  Endpoint fields (Host, Port)
// are deliberately not covered; the library receives its endpoint as
// Connect arguments, so only the tools validate those, via
// [Config.ValidateEndpoint].
func (c *Config) Validate() error {
	if c.SendBufferSize <= 0 {
		return &neterr.ConfigError{Field: "send-buffer-size", Value: c.SendBufferSize, Message: "must be positive"}
	}
	if c.RecvBufferSize <= 0 {
		return &neterr.ConfigError{Field: "recv-buffer-size", Value: c.RecvBufferSize, Message: "must be positive"}
	}
	if c.ReadChunkSize <= 0 {
		return &neterr.ConfigError{Field: "read-chunk-size", Value: c.ReadChunkSize, Message: "must be positive"}
	}
	if c.SendPollInterval <= 0 {
		return &neterr.ConfigError{Field: "send-poll-interval", Value: c.SendPollInterval, Message: "must be positive"}
	}
	if c.ReadPollInterval <= 0 {
		return &neterr.ConfigError{Field: "read-poll-interval", Value: c.ReadPollInterval, Message: "must be positive"}
	}
	if c.IOTimeout < 0 {
		return &neterr.ConfigError{Field: "io-timeout", Value: c.IOTimeout, Message: "must not be negative", Hint: "use 0 to disable I/O deadlines"}
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &neterr.ConfigError{Field: "local-port", Value: c.LocalPort, Message: "out of range 0-65535"}
	}
	return nil
}

// ValidateEndpoint checks that the configuration names a dialable
// remote endpoint.  Used by the command-line tools, which take their
// endpoint from flags rather than Connect arguments.
func (c *Config) ValidateEndpoint() error {
	if c.Host == "" {
		return &neterr.ConfigError{Field: "host", Message: "hostname is required"}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &neterr.ConfigError{Field: "port", Value: c.Port, Message: "out of range 1-65535"}
	}
	return nil
}
