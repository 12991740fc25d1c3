package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		expectedError error
		invalid       bool
	}{
		{name: "valid", url: "redis://localhost:6379/2"},
		{name: "missing", url: "", expectedError: ErrURLRequired},
		{name: "bad scheme", url: "http://localhost:6379", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{URL: tt.url}
			err := cfg.Validate()

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
			case tt.invalid:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Prefix(t *testing.T) {
	cfg := &Config{Prefix: "parcelsight"}
	assert.Equal(t, "parcelsight:report:latest", cfg.PrefixKey("report:latest"))
	assert.Equal(t, "parcelsight:analysis", cfg.PrefixQueue("analysis"))

	cfg.Prefix = ""
	assert.Equal(t, "analysis", cfg.PrefixQueue("analysis"))
}

func TestAsynqOptions(t *testing.T) {
	cfg := &Config{URL: "redis://:secret@cache:6380/3"}

	opt, err := cfg.Options()
	require.NoError(t, err)

	aopt := AsynqOptions(opt)
	assert.Equal(t, "cache:6380", aopt.Addr)
	assert.Equal(t, "secret", aopt.Password)
	assert.Equal(t, 3, aopt.DB)
}
