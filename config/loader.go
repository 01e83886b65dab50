package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by the cmd tools)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults  (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the SOCKETBASE_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Duration values accept
// Go duration strings ("30s", "10ms") or a bare integer, which is read
// as milliseconds.

// LoadFromEnv overlays environment variables onto cfg.  Only set env
// vars override the existing value.  This should be called BEFORE CLI
// flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SOCKETBASE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("SOCKETBASE_PORT"); v > 0 {
		cfg.Port = v
	}
	if envBool("SOCKETBASE_UDP") {
		cfg.UDP = true
	}
	if v := envInt("SOCKETBASE_LOCAL_PORT"); v > 0 {
		cfg.LocalPort = v
	}
	if v := envDuration("SOCKETBASE_IO_TIMEOUT"); v > 0 {
		cfg.IOTimeout = v
	}

	// Buffers
	if v := envInt("SOCKETBASE_SEND_BUFFER"); v > 0 {
		cfg.SendBufferSize = v
	}
	if v := envInt("SOCKETBASE_RECV_BUFFER"); v > 0 {
		cfg.RecvBufferSize = v
	}
	if v := envInt("SOCKETBASE_READ_CHUNK"); v > 0 {
		cfg.ReadChunkSize = v
	}

	// Worker pacing
	if v := envDuration("SOCKETBASE_SEND_POLL"); v > 0 {
		cfg.SendPollInterval = v
	}
	if v := envDuration("SOCKETBASE_READ_POLL"); v > 0 {
		cfg.ReadPollInterval = v
	}

	// Output
	if v := envInt("SOCKETBASE_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare integers are milliseconds.
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Millisecond
	}
	return 0
}
