// Package worker runs the Asynq server that processes parcel analysis tasks.
package worker

import (
	"errors"
	"time"
)

var (
	// ErrInvalidConcurrency is returned when concurrency is not positive
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
	// ErrInvalidShutdownTimeout is returned when the shutdown timeout is negative
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must not be negative")
)

// Config contains worker-specific settings
type Config struct {
	Concurrency     int           `yaml:"concurrency" default:"10"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"30s"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.ShutdownTimeout < 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}
