package patterns

// Config holds the yield pattern analyzer settings.
type Config struct {
	// Period is the seasonal period in observations
	Period int `yaml:"period" default:"12"`
	// MinObservations is the shortest history that gets decomposed
	MinObservations int `yaml:"minObservations" default:"3"`
	// Epsilon guards the stability index division
	Epsilon float64 `yaml:"epsilon" default:"0.000001"`
	// BreakpointSigma scales the standard deviation a step must exceed to be flagged
	BreakpointSigma float64 `yaml:"breakpointSigma" default:"1"`
	// ExtrapolateTrend extends the moving-average trend linearly to both series ends
	ExtrapolateTrend bool `yaml:"extrapolateTrend" default:"true"`
}

// DefaultConfig returns the default analyzer settings.
func DefaultConfig() *Config {
	return &Config{
		Period:           12,
		MinObservations:  3,
		Epsilon:          1e-6,
		BreakpointSigma:  1,
		ExtrapolateTrend: true,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Period < 1 {
		return ErrInvalidPeriod
	}

	if c.MinObservations < 2 {
		return ErrInvalidMinObservations
	}

	if c.Epsilon <= 0 {
		return ErrInvalidEpsilon
	}

	if c.BreakpointSigma < 0 {
		return ErrNegativeSigma
	}

	return nil
}
