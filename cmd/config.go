package cmd

import (
	"fmt"

	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/ethpandaops/parcelsight/pkg/loader"
	"github.com/ethpandaops/parcelsight/pkg/server"
	"github.com/sirupsen/logrus"
)

// loadConfig loads and validates the root configuration. The config file's logging level
// applies unless --log-level was given explicitly.
func loadConfig() (*server.Config, error) {
	config, err := server.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if !rootCmd.PersistentFlags().Changed("log-level") {
		level, err := logrus.ParseLevel(config.Logging)
		if err != nil {
			return nil, err
		}

		logger.SetLevel(level)
	}

	logger.WithField("config", cfgFile).Info("Configuration loaded")

	return config, nil
}

// buildEngine loads the source tables and builds the analytics engine over them
func buildEngine(config *server.Config) (*engine.Engine, error) {
	dataset, err := loader.Load(logger, &config.Engine.Loader)
	if err != nil {
		return nil, fmt.Errorf("failed to load source tables: %w", err)
	}

	return engine.New(logger, &config.Engine, dataset)
}
