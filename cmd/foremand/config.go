package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAddr            = "127.0.0.1:7077"
	defaultMetricsAddr     = "127.0.0.1:9091"
	defaultWorkers         = 4
	defaultShutdownTimeout = 10 * time.Second
)

// Config is the daemon configuration. Values resolve lowest to highest:
// built-in defaults, config file, FOREMAN_* environment variables, flags.
// Durations are strings in time.ParseDuration syntax ("500ms", "10s").
type Config struct {
	Addr            string `yaml:"addr"`
	MetricsAddr     string `yaml:"metrics_addr"`
	Workers         int    `yaml:"workers"`
	QueueSize       int    `yaml:"queue_size"`
	PollInterval    string `yaml:"poll_interval"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	LogDir          string `yaml:"log_dir"`
	Debug           bool   `yaml:"debug"`
}

func defaultConfig() Config {
	return Config{
		Addr:            defaultAddr,
		MetricsAddr:     defaultMetricsAddr,
		Workers:         defaultWorkers,
		ShutdownTimeout: defaultShutdownTimeout.String(),
	}
}

// loadConfig reads the YAML file at path over the defaults. An empty path
// means defaults only; a path that cannot be read or parsed is an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overlays FOREMAN_* environment variables. Values that do not
// parse are ignored rather than fatal; validate catches what matters.
func (c *Config) applyEnv() {
	if v := os.Getenv("FOREMAN_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("FOREMAN_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("FOREMAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("FOREMAN_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.QueueSize = n
		}
	}
	if v := os.Getenv("FOREMAN_POLL_INTERVAL"); v != "" {
		c.PollInterval = v
	}
	if v := os.Getenv("FOREMAN_LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("FOREMAN_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if _, err := c.pollInterval(); err != nil {
		return err
	}
	if _, err := c.shutdownTimeout(); err != nil {
		return err
	}
	return nil
}

// pollInterval returns the parsed interval, zero meaning "pool default".
func (c *Config) pollInterval() (time.Duration, error) {
	if c.PollInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("poll_interval: %w", err)
	}
	return d, nil
}

func (c *Config) shutdownTimeout() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return defaultShutdownTimeout, nil
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("shutdown_timeout: %w", err)
	}
	return d, nil
}
