package config

// file.go - configuration loading from a YAML file via viper.
//
// A file is only consulted when the caller names one; there is no
// implicit search path.  Example:
//
//	host: 10.0.0.9
//	port: 4000
//	udp: false
//	io_timeout: 30s
//	send_buffer_size: 8192
//	recv_buffer_size: 65535
//	read_chunk_size: 8192
//	send_poll_interval: 10ms
//	read_poll_interval: 1ms

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadFile merges values from the YAML file at path onto cfg.  Keys
// absent from the file leave the corresponding field untouched, so the
// file behaves as an overlay like [LoadFromEnv].
func LoadFile(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
