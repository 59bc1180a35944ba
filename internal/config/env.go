package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays HELLOD_* environment variables onto cfg.
// Values that do not parse are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("HELLOD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("HELLOD_ROOT"); v != "" {
		cfg.Server.Root = v
	}
	if v := os.Getenv("HELLOD_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxConnections = n
		}
	}
	if v := os.Getenv("HELLOD_SLEEP_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.SleepDelay = d
		}
	}
	if v := os.Getenv("HELLOD_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("HELLOD_WORKERS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 0); err == nil {
			cfg.Pool.Workers = uint(n)
		}
	}
	if v := os.Getenv("HELLOD_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 0); err == nil {
			cfg.Pool.QueueCapacity = uint(n)
		}
	}
	if v := os.Getenv("HELLOD_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("HELLOD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HELLOD_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
