package worker

import (
	"testing"
	"time"

	"github.com/ethpandaops/parcelsight/internal/testutil"
	"github.com/ethpandaops/parcelsight/pkg/tasks"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		expectedError error
	}{
		{name: "valid", cfg: Config{Concurrency: 4, ShutdownTimeout: time.Second}},
		{name: "zero concurrency", cfg: Config{}, expectedError: ErrInvalidConcurrency},
		{name: "negative timeout", cfg: Config{Concurrency: 1, ShutdownTimeout: -time.Second}, expectedError: ErrInvalidShutdownTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expectedError == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestNewService(t *testing.T) {
	handler := tasks.NewTaskHandler(testutil.Logger(), nil, nil)

	_, err := NewService(testutil.Logger(), &Config{}, asynq.RedisClientOpt{}, tasks.QueueAnalysis, handler)
	assert.ErrorIs(t, err, ErrInvalidConcurrency)

	svc, err := NewService(testutil.Logger(), &Config{Concurrency: 2}, asynq.RedisClientOpt{Addr: "localhost:6379"},
		tasks.QueueAnalysis, handler)
	require.NoError(t, err)

	// stopping a service that never started is a no-op
	assert.NoError(t, svc.Stop())
}
