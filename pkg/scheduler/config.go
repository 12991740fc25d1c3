// Package scheduler re-runs the batch analysis on a cron schedule, on one instance at a time.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrInvalidSchedule is returned when the cron schedule does not parse
	ErrInvalidSchedule = errors.New("invalid schedule")
	// ErrInvalidTimeout is returned when the run timeout is not positive
	ErrInvalidTimeout = errors.New("run timeout must be positive")
	// ErrInvalidLease is returned when the lease is not longer than the renew interval
	ErrInvalidLease = errors.New("leader lease must be longer than the renew interval")
)

// Config defines scheduler configuration
type Config struct {
	Enabled bool `yaml:"enabled" default:"false"`
	// Schedule is a standard cron spec or descriptor such as "@every 1h"
	Schedule string `yaml:"schedule" default:"@every 1h"`
	// RunOnStart runs the job once as soon as this instance leads
	RunOnStart bool          `yaml:"runOnStart" default:"true"`
	Timeout    time.Duration `yaml:"timeout" default:"10m"`
	// LeaseTTL and RenewInterval drive the Redis leader election
	LeaseTTL      time.Duration `yaml:"leaseTTL" default:"10s"`
	RenewInterval time.Duration `yaml:"renewInterval" default:"3s"`
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, c.Schedule, err)
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RenewInterval <= 0 || c.LeaseTTL <= c.RenewInterval {
		return ErrInvalidLease
	}

	return nil
}
