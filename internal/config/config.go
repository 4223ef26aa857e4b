package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort          = 6464
	DefaultCommandBuffer = 256
	DefaultEventBuffer   = 64
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Log     LogConfig     `yaml:"log"`
	Mock    MockConfig    `yaml:"mock"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxConnections int      `yaml:"max_connections"` // 0 = unlimited
	StaticDir      string   `yaml:"static_dir"`
}

type SessionConfig struct {
	CommandBuffer  int     `yaml:"command_buffer"`
	EventBuffer    int     `yaml:"event_buffer"`
	SeedRectangles int     `yaml:"seed_rectangles"`
	SeedSpread     float64 `yaml:"seed_spread"`
}

type BridgeConfig struct {
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	PongTimeout     time.Duration `yaml:"pong_timeout"`  // 0 disables read deadlines
	PingInterval    time.Duration `yaml:"ping_interval"` // 0 disables pings
	MaxMessageBytes int64         `yaml:"max_message_bytes"`
}

// MockConfig enables synthetic rectangle movement for demos.
type MockConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Movers   int           `yaml:"movers"`
	Interval time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: DefaultPort,
			Host: "0.0.0.0",
		},
		Session: SessionConfig{
			CommandBuffer:  DefaultCommandBuffer,
			EventBuffer:    DefaultEventBuffer,
			SeedRectangles: 1,
			SeedSpread:     8000,
		},
		Bridge: BridgeConfig{
			WriteTimeout:    10 * time.Second,
			PongTimeout:     60 * time.Second,
			PingInterval:    30 * time.Second,
			MaxMessageBytes: 64 * 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Mock: MockConfig{
			Movers:   3,
			Interval: 500 * time.Millisecond,
		},
	}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return defaultConfig()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative")
	}
	if c.Session.CommandBuffer < 1 {
		return fmt.Errorf("session.command_buffer must be at least 1")
	}
	// A join queues two events on the new connection's buffer.
	if c.Session.EventBuffer < 2 {
		return fmt.Errorf("session.event_buffer must be at least 2")
	}
	if c.Session.SeedRectangles < 1 {
		return fmt.Errorf("session.seed_rectangles must be at least 1")
	}
	if c.Bridge.WriteTimeout <= 0 {
		return fmt.Errorf("bridge.write_timeout must be positive")
	}
	if c.Bridge.PingInterval > 0 && c.Bridge.PongTimeout > 0 && c.Bridge.PingInterval >= c.Bridge.PongTimeout {
		return fmt.Errorf("bridge.ping_interval must be shorter than bridge.pong_timeout")
	}
	if c.Mock.Enabled && (c.Mock.Movers < 1 || c.Mock.Interval <= 0) {
		return fmt.Errorf("mock needs at least one mover and a positive interval")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
