// Copyright (c) 2024 Neomantra Corp
//
// Package config loads daemon configuration from a YAML file with
// environment overrides. The four environment variables the core
// recognizes (RELAY_SOCKET_DIR, MAX_MESSAGE_BYTES, RING_CAPACITY_TRADES,
// CHECKSUMS) always win over the file, whether or not a file is present.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/dawsh2/alphapulse/pkg/wire"
)

// ChecksumMode controls when consumers validate frame checksums.
type ChecksumMode string

const (
	// ChecksumsOn validates every frame.
	ChecksumsOn ChecksumMode = "on"
	// ChecksumsOff never validates.
	ChecksumsOff ChecksumMode = "off"
	// ChecksumsStartup validates during a startup window and after every
	// reconnect, then stops; the default.
	ChecksumsStartup ChecksumMode = "startup"
)

// DefaultSocketDir hosts the relay sockets and ring files.
const DefaultSocketDir = "/tmp/alphapulse"

// DefaultRingCapacityTrades is the default trade-ring slot count.
const DefaultRingCapacityTrades = 65536

// Config is the top-level daemon configuration.
type Config struct {
	SocketDir          string       `mapstructure:"socket_dir"`
	MaxMessageBytes    int          `mapstructure:"max_message_bytes"`
	RingCapacityTrades int          `mapstructure:"ring_capacity_trades"`
	Checksums          ChecksumMode `mapstructure:"checksums"`

	Venues  map[string]VenueConfig `mapstructure:"venues"`
	Lineage bool                   `mapstructure:"lineage"`
	Logging LoggingConfig          `mapstructure:"logging"`
}

// VenueConfig configures one adapter instance, keyed by venue name.
type VenueConfig struct {
	// Symbols are canonical "BASE-QUOTE" instruments for CEX venues.
	Symbols []string `mapstructure:"symbols"`
	// URL overrides the venue's default WebSocket endpoint.
	URL string `mapstructure:"url"`
	// RestURL overrides the venue's default REST endpoint.
	RestURL string `mapstructure:"rest_url"`
	// RpcURL is the Ethereum node endpoint for DEX venues.
	RpcURL string `mapstructure:"rpc_url"`
	// Chain names the token-identity venue for DEX venues ("polygon",
	// "ethereum", ...).
	Chain string `mapstructure:"chain"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SocketDir:          DefaultSocketDir,
		MaxMessageBytes:    wire.DefaultMaxMessageBytes,
		RingCapacityTrades: DefaultRingCapacityTrades,
		Checksums:          ChecksumsStartup,
		Logging:            LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (optional; empty means defaults only) and applies the
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if dir := os.Getenv("RELAY_SOCKET_DIR"); dir != "" {
		cfg.SocketDir = dir
	}
	if s := os.Getenv("MAX_MESSAGE_BYTES"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("MAX_MESSAGE_BYTES: %w", err)
		}
		cfg.MaxMessageBytes = n
	}
	if s := os.Getenv("RING_CAPACITY_TRADES"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("RING_CAPACITY_TRADES: %w", err)
		}
		cfg.RingCapacityTrades = n
	}
	if s := os.Getenv("CHECKSUMS"); s != "" {
		cfg.Checksums = ChecksumMode(strings.ToLower(s))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges; a failure here is a configuration error
// (exit code 1).
func (c *Config) Validate() error {
	if c.SocketDir == "" {
		return fmt.Errorf("socket_dir is required")
	}
	if c.MaxMessageBytes < wire.Header_Size {
		return fmt.Errorf("max_message_bytes must be at least %d", wire.Header_Size)
	}
	if c.RingCapacityTrades <= 0 || c.RingCapacityTrades&(c.RingCapacityTrades-1) != 0 {
		return fmt.Errorf("ring_capacity_trades must be a positive power of two")
	}
	switch c.Checksums {
	case ChecksumsOn, ChecksumsOff, ChecksumsStartup:
	default:
		return fmt.Errorf("checksums must be one of: on, off, startup")
	}
	return nil
}

// MarketDataSocket returns the market-data relay socket path.
func (c *Config) MarketDataSocket() string {
	return filepath.Join(c.SocketDir, "market_data.sock")
}

// SignalsSocket returns the signals relay socket path.
func (c *Config) SignalsSocket() string {
	return filepath.Join(c.SocketDir, "signals.sock")
}

// RingPath returns the path of the named ring buffer file.
func (c *Config) RingPath(name string) string {
	return filepath.Join(c.SocketDir, name+".ring")
}
