// Package config holds the service configuration: YAML file with
// ${VAR} environment expansion, defaults for every field, and
// validation. Zero configuration must yield a working engine.
package config

import (
	"fmt"
	"net"

	"github.com/warp/payments-engine/engine"
	"github.com/warp/payments-engine/server"
)

// Config is the root configuration for both binaries.
type Config struct {
	Server ServerConfig `yaml:"server"`
	API    APIConfig    `yaml:"api"`
	Engine EngineConfig `yaml:"engine"`
	Events EventsConfig `yaml:"events"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds the TCP ingestion listener settings.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxConnections int    `yaml:"max_connections"`
}

// APIConfig holds the HTTP admin surface settings. An empty addr
// disables it.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// EngineConfig holds ledger settings. MaxTxHistory bounds the
// transaction history cache; -1 means unbounded, 0 takes the default.
type EngineConfig struct {
	MaxTxHistory int `yaml:"max_tx_history"`
}

// EventsConfig holds Kafka publishing settings. No brokers means
// events are discarded.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default values for optional configuration fields.
const (
	DefaultServerAddr = "0.0.0.0:8080"
	DefaultTopic      = "account_locked"
	DefaultLogLevel   = "info"
)

// Default returns the configuration a missing config file implies.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = server.DefaultMaxConnections
	}
	if c.Engine.MaxTxHistory == 0 {
		c.Engine.MaxTxHistory = engine.DefaultMaxHistory
	}
	if c.Events.Topic == "" {
		c.Events.Topic = DefaultTopic
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("server.addr %q: %w", c.Server.Addr, err)
	}
	if c.API.Addr != "" {
		if _, _, err := net.SplitHostPort(c.API.Addr); err != nil {
			return fmt.Errorf("api.addr %q: %w", c.API.Addr, err)
		}
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("server.max_connections must be >= 1, got %d", c.Server.MaxConnections)
	}
	if c.Engine.MaxTxHistory < -1 {
		return fmt.Errorf("engine.max_tx_history must be -1 (unbounded) or positive, got %d", c.Engine.MaxTxHistory)
	}
	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required when brokers are set")
	}
	return nil
}

// HistoryCap translates the config value into the engine's convention
// (<= 0 means unbounded there).
func (c *Config) HistoryCap() int {
	if c.Engine.MaxTxHistory == -1 {
		return 0
	}
	return c.Engine.MaxTxHistory
}
