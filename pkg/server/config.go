// Package server provides the root configuration and the lifecycle of the long-running
// parcelsight process.
package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/parcelsight/pkg/api"
	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/ethpandaops/parcelsight/pkg/publisher"
	"github.com/ethpandaops/parcelsight/pkg/redis"
	"github.com/ethpandaops/parcelsight/pkg/scheduler"
	"github.com/ethpandaops/parcelsight/pkg/worker"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Define static errors
var (
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrMetricsAddrRequired    = errors.New("metrics address is required")
)

// Config holds the root configuration
type Config struct {
	// Logging is the logging level to use.
	Logging string `yaml:"logging" default:"info"`
	// MetricsAddr is the address to listen on for metrics.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// ShutdownTimeout is the timeout for shutting down the server.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`

	// Engine holds the analytics settings, read from the top level of the file
	Engine engine.Config `yaml:",inline"`

	API       api.Config       `yaml:"api"`
	Publisher publisher.Config `yaml:"publisher"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Worker    worker.Config    `yaml:"worker"`
	Redis     redis.Config     `yaml:"redis"`
}

// LoadConfig applies the defaults then the YAML file at path. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}

		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// NeedsRedis reports whether any enabled component talks to Redis
func (c *Config) NeedsRedis() bool {
	return c.Publisher.Enabled || c.Scheduler.Enabled
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logging); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}

	if c.MetricsAddr == "" {
		return ErrMetricsAddrRequired
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if err := c.Engine.Loader.Validate(); err != nil {
		return fmt.Errorf("loader config validation failed: %w", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return err
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api config validation failed: %w", err)
	}

	if err := c.Publisher.Validate(); err != nil {
		return fmt.Errorf("publisher config validation failed: %w", err)
	}

	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler config validation failed: %w", err)
	}

	if err := c.Worker.Validate(); err != nil {
		return fmt.Errorf("worker config validation failed: %w", err)
	}

	if c.NeedsRedis() {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("invalid redis configuration: %w", err)
		}
	}

	return nil
}
