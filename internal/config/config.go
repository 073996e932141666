// Package config loads the broker's YAML configuration file into a typed
// struct, fills in defaults, and validates the result.
package config

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// Permeability controls whether messages published over the encrypted
// Noise listener may be forwarded to clients connected over plain TCP.
type Permeability string

const (
	Permissive Permeability = "permissive"
	Strict     Permeability = "strict"
)

// Config is the broker's configuration schema.
type Config struct {
	// MQTTListenAddr is the plaintext TCP listen address, e.g. ":1883".
	MQTTListenAddr string `yaml:"mqtt_listen_addr"`

	// NoiseListenAddr is the encrypted-transport listen address. The
	// Noise transport itself is not implemented (see crossesTransport in
	// dispatcher.go); the field is still validated so config files
	// written against the full schema load without modification.
	NoiseListenAddr string `yaml:"noise_listen_addr"`

	// KeepAliveSeconds bounds how long a connection may be idle before
	// the worker disconnects it with TimeOut.
	KeepAliveSeconds uint16 `yaml:"keep_alive_seconds"`

	// DispatcherQueueSizeBytes sizes the dispatcher's bounded inbound
	// queue. Smaller values apply more backpressure to connection
	// workers at the cost of more context switching.
	DispatcherQueueSizeBytes uint64 `yaml:"dispatcher_queue_size_bytes"`

	// MaxPacketSize disconnects a connection that fails to decode a
	// packet within this many bytes.
	MaxPacketSize uint32 `yaml:"max_packet_size"`

	// ChannelPermeability governs cross-transport forwarding once the
	// Noise listener exists; meaningless while it doesn't.
	ChannelPermeability Permeability `yaml:"channel_permeability"`

	// PrivateKeyHex is the broker's 32-byte Noise static private key,
	// hex-encoded. Unused until the Noise transport is implemented.
	PrivateKeyHex string `yaml:"private_key"`
}

// Load reads and parses path into a Config, applying defaults and
// validating the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.MQTTListenAddr == "" {
		c.MQTTListenAddr = ":1883"
	}
	if c.KeepAliveSeconds == 0 {
		c.KeepAliveSeconds = 60
	}
	if c.DispatcherQueueSizeBytes == 0 {
		c.DispatcherQueueSizeBytes = 1 << 20 // 1 MiB
	}
	if c.MaxPacketSize == 0 {
		c.MaxPacketSize = 256 * 1024
	}
	if c.ChannelPermeability == "" {
		c.ChannelPermeability = Permissive
	}
}

// Validate checks invariants that setDefaults can't fix on its own.
func (c *Config) Validate() error {
	if c.MQTTListenAddr == "" {
		return fmt.Errorf("mqtt_listen_addr must not be empty")
	}
	if c.NoiseListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.NoiseListenAddr); err != nil {
			return fmt.Errorf("noise_listen_addr: %w", err)
		}
	}
	if c.DispatcherQueueSizeBytes == 0 {
		return fmt.Errorf("dispatcher_queue_size_bytes must be > 0")
	}
	if c.MaxPacketSize == 0 {
		return fmt.Errorf("max_packet_size must be > 0")
	}
	switch c.ChannelPermeability {
	case Permissive, Strict:
	default:
		return fmt.Errorf("channel_permeability must be %q or %q, got %q", Permissive, Strict, c.ChannelPermeability)
	}
	if c.PrivateKeyHex != "" && len(c.PrivateKeyHex) != 64 {
		return fmt.Errorf("private_key must be 32 bytes hex-encoded (64 chars), got %d", len(c.PrivateKeyHex))
	}
	return nil
}
