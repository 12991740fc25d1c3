// Package engine wires the fusion layer and the analytical stages into one explicitly
// constructed analytics engine and runs them as a batch.
package engine

import (
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/parcelsight/pkg/factors"
	"github.com/ethpandaops/parcelsight/pkg/fusion"
	"github.com/ethpandaops/parcelsight/pkg/loader"
	"github.com/ethpandaops/parcelsight/pkg/patterns"
	"github.com/ethpandaops/parcelsight/pkg/risk"
)

var (
	// ErrInvalidConcurrency is returned when the batch concurrency is not positive
	ErrInvalidConcurrency = errors.New("batch concurrency must be positive")
	// ErrUnknownParcel is returned when a parcel is in neither the monitoring nor the yield table
	ErrUnknownParcel = errors.New("unknown parcel")
)

// Config holds the analytics engine configuration
type Config struct {
	// Loader locates the source tables; the engine itself is built from already loaded tables
	Loader   loader.Config   `yaml:"loader"`
	Fusion   fusion.Config   `yaml:"fusion"`
	Risk     risk.Config     `yaml:"risk"`
	Patterns patterns.Config `yaml:"patterns"`
	Factors  factors.Config  `yaml:"factors"`
	Batch    BatchConfig     `yaml:"batch"`
}

// BatchConfig controls the batch runner
type BatchConfig struct {
	// Concurrency bounds the number of parcels analysed at once
	Concurrency int `yaml:"concurrency" default:"4"`
	// Parcels restricts the run to these parcels; empty means every known parcel
	Parcels []string `yaml:"parcels,omitempty"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("invalid engine config defaults: %v", err))
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Fusion.Validate(); err != nil {
		return fmt.Errorf("fusion config validation failed: %w", err)
	}

	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk config validation failed: %w", err)
	}

	if err := c.Patterns.Validate(); err != nil {
		return fmt.Errorf("patterns config validation failed: %w", err)
	}

	if err := c.Factors.Validate(); err != nil {
		return fmt.Errorf("factors config validation failed: %w", err)
	}

	if c.Batch.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	return nil
}
