// Package config holds the hellod server configuration.
// Values are resolved in order: built-in defaults, an optional YAML file,
// HELLOD_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level hellod configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Pool    PoolConfig    `yaml:"pool"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the TCP listener and request handling.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// Root is the directory hello.html and 404.html are read from.
	// Built-in pages are served when it is empty or a file is missing.
	Root string `yaml:"root"`
	// MaxConnections stops the accept loop after that many connections; 0 means no limit.
	MaxConnections int `yaml:"max_connections"`
	// SleepDelay is how long /sleep waits before answering.
	SleepDelay time.Duration `yaml:"sleep_delay"`
	// ReadTimeout bounds reading the request line.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// PoolConfig configures the job pool serving connections.
type PoolConfig struct {
	Workers       uint `yaml:"workers"`
	QueueCapacity uint `yaml:"queue_capacity"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics; empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        "127.0.0.1:7878",
			SleepDelay:  5 * time.Second,
			ReadTimeout: 10 * time.Second,
		},
		Pool: PoolConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file on top of the defaults. If path is empty, it returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values hellod cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.MaxConnections < 0 {
		errs = append(errs, errors.New("server.max_connections must be non-negative"))
	}
	if c.Server.SleepDelay < 0 {
		errs = append(errs, errors.New("server.sleep_delay must be non-negative"))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, errors.New("server.read_timeout must be non-negative"))
	}
	if c.Pool.Workers == 0 {
		errs = append(errs, errors.New("pool.workers must be greater than zero"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
