// Package publisher writes engine reports to Redis for downstream consumers.
package publisher

import (
	"errors"
	"time"
)

var (
	// ErrInvalidTTL is returned when the per-run report TTL is not positive
	ErrInvalidTTL = errors.New("report ttl must be positive")
	// ErrInvalidHistory is returned when the run index size is not positive
	ErrInvalidHistory = errors.New("report history must be positive")
	// ErrChannelRequired is returned when no notification channel is configured
	ErrChannelRequired = errors.New("notification channel is required")
)

// Config holds the results sink configuration
type Config struct {
	Enabled bool `yaml:"enabled" default:"false"`
	// TTL bounds how long per-run and per-parcel reports are kept
	TTL time.Duration `yaml:"ttl" default:"168h"`
	// History is the number of runs kept in the run index
	History int64 `yaml:"history" default:"50"`
	// Channel receives a notification for every published report
	Channel string `yaml:"channel" default:"reports"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.TTL <= 0 {
		return ErrInvalidTTL
	}

	if c.History <= 0 {
		return ErrInvalidHistory
	}

	if c.Channel == "" {
		return ErrChannelRequired
	}

	return nil
}
