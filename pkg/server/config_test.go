package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/engine"
	"github.com/ethpandaops/parcelsight/pkg/fusion"
	"github.com/ethpandaops/parcelsight/pkg/loader"
	"github.com/ethpandaops/parcelsight/pkg/publisher"
	"github.com/ethpandaops/parcelsight/pkg/redis"
	"github.com/ethpandaops/parcelsight/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cfg.Engine.Loader.Monitoring = "monitoring.csv"
	cfg.Engine.Loader.Yield = "yield.csv"

	return cfg
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Nil(t, cfg.HealthCheckAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, fusion.YieldJoinDate, cfg.Engine.Fusion.YieldJoin)
	assert.Equal(t, 4, cfg.Engine.Batch.Concurrency)
	assert.Equal(t, "@every 1h", cfg.Scheduler.Schedule)
	assert.Equal(t, "parcelsight", cfg.Redis.Prefix)
	assert.False(t, cfg.NeedsRedis())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging: debug
healthCheckAddr: ":8081"
loader:
  monitoring: data/monitoring.csv
  yield: data/yield.csv
  delimiter: ";"
fusion:
  yieldJoin: year
  weatherTolerance: 72h
risk:
  weights:
    hydric: 0.6
factors:
  trees: 20
batch:
  parcels: [P002]
publisher:
  enabled: true
redis:
  url: redis://cache:6379/1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging)
	require.NotNil(t, cfg.HealthCheckAddr)
	assert.Equal(t, ":8081", *cfg.HealthCheckAddr)
	assert.Equal(t, "data/monitoring.csv", cfg.Engine.Loader.Monitoring)
	assert.Equal(t, ";", cfg.Engine.Loader.Delimiter)
	assert.Equal(t, fusion.YieldJoinYear, cfg.Engine.Fusion.YieldJoin)
	assert.Equal(t, 72*time.Hour, cfg.Engine.Fusion.WeatherTolerance)
	assert.InDelta(t, 0.6, cfg.Engine.Risk.Weights.Hydric, 1e-12)
	// untouched siblings keep their defaults
	assert.InDelta(t, 0.3, cfg.Engine.Risk.Weights.Vegetation, 1e-12)
	assert.Equal(t, 20, cfg.Engine.Factors.Trees)
	assert.Equal(t, []string{"P002"}, cfg.Engine.Batch.Parcels)
	assert.True(t, cfg.Publisher.Enabled)
	assert.Equal(t, 168*time.Hour, cfg.Publisher.TTL)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.True(t, cfg.NeedsRedis())

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [debug"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *Config)
		expectedError error
		expectError   bool
	}{
		{
			name:   "valid",
			mutate: func(_ *Config) {},
		},
		{
			name:        "bad logging level",
			mutate:      func(c *Config) { c.Logging = "loud" },
			expectError: true,
		},
		{
			name:          "no metrics address",
			mutate:        func(c *Config) { c.MetricsAddr = "" },
			expectedError: ErrMetricsAddrRequired,
		},
		{
			name:          "zero shutdown timeout",
			mutate:        func(c *Config) { c.ShutdownTimeout = 0 },
			expectedError: ErrInvalidShutdownTimeout,
		},
		{
			name:          "missing monitoring path",
			mutate:        func(c *Config) { c.Engine.Loader.Monitoring = "" },
			expectedError: loader.ErrMissingPath,
		},
		{
			name:          "invalid engine config",
			mutate:        func(c *Config) { c.Engine.Batch.Concurrency = 0 },
			expectedError: engine.ErrInvalidConcurrency,
		},
		{
			name: "invalid publisher config",
			mutate: func(c *Config) {
				c.Publisher.Enabled = true
				c.Publisher.History = 0
			},
			expectedError: publisher.ErrInvalidHistory,
		},
		{
			name: "invalid schedule",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = true
				c.Scheduler.Schedule = "every now and then"
			},
			expectedError: scheduler.ErrInvalidSchedule,
		},
		{
			name: "redis checked when needed",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = true
				c.Redis.URL = ""
			},
			expectedError: redis.ErrURLRequired,
		},
		{
			name:   "redis ignored when unused",
			mutate: func(c *Config) { c.Redis.URL = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
			case tt.expectError:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
