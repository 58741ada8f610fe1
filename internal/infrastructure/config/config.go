package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/horizon/internal/ipc"
)

// Config holds all daemon configuration.
type Config struct {
	Logging     LogConfig
	Diagnostics DiagnosticsConfig
	Runtime     RuntimeConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// DiagnosticsConfig holds the diagnostics HTTP server configuration.
type DiagnosticsConfig struct {
	Addr           string        `envconfig:"DIAG_ADDR" default:"127.0.0.1:8090"`
	Enabled        bool          `envconfig:"DIAG_ENABLED" default:"true"`
	CORSOrigins    []string      `envconfig:"DIAG_CORS_ORIGINS"`
	RateLimitRPS   int           `envconfig:"DIAG_RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int           `envconfig:"DIAG_RATE_LIMIT_BURST" default:"40"`
	StreamInterval time.Duration `envconfig:"DIAG_STREAM_INTERVAL" default:"1s"`
}

// RuntimeConfig holds the IPC runtime configuration.
type RuntimeConfig struct {
	// ManifestPath is the service manifest; empty means the built-in one.
	ManifestPath     string `envconfig:"MANIFEST_PATH"`
	AddrWidth        int    `envconfig:"ADDR_WIDTH" default:"32"`
	StaticBufferSize int    `envconfig:"STATIC_BUFFER_SIZE" default:"2048"`
}

// Width returns the configured pointer width.
func (r RuntimeConfig) Width() ipc.AddrWidth {
	if r.AddrWidth == 64 {
		return ipc.Addr64
	}
	return ipc.Addr32
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.Runtime.AddrWidth != 32 && c.Runtime.AddrWidth != 64 {
		return fmt.Errorf("ADDR_WIDTH must be 32 or 64, got %d", c.Runtime.AddrWidth)
	}
	if c.Diagnostics.StreamInterval <= 0 {
		return fmt.Errorf("DIAG_STREAM_INTERVAL must be positive, got %s", c.Diagnostics.StreamInterval)
	}
	if c.Runtime.StaticBufferSize <= 0 || c.Runtime.StaticBufferSize >= 1<<18 {
		return fmt.Errorf("STATIC_BUFFER_SIZE %d out of range", c.Runtime.StaticBufferSize)
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Diagnostics: DiagnosticsConfig{
			Addr:           "127.0.0.1:8090",
			Enabled:        true,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			StreamInterval: time.Second,
		},
		Runtime: RuntimeConfig{
			AddrWidth:        32,
			StaticBufferSize: 0x800,
		},
	}
}
