package risk

// Weights are the composite risk coefficients.
type Weights struct {
	Hydric     float64 `yaml:"hydric" default:"0.5"`
	Vegetation float64 `yaml:"vegetation" default:"0.3"`
	Yield      float64 `yaml:"yield" default:"0.2"`
}

// Config holds the risk scorer settings.
type Config struct {
	Weights Weights `yaml:"weights"`
	// Epsilon guards the divisions by retention capacity and by the maximum mean yield
	Epsilon float64 `yaml:"epsilon" default:"0.000001"`
}

// DefaultConfig returns the standard weights 0.5/0.3/0.2 and epsilon 1e-6.
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{Hydric: 0.5, Vegetation: 0.3, Yield: 0.2},
		Epsilon: 1e-6,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	w := c.Weights
	if w.Hydric < 0 || w.Vegetation < 0 || w.Yield < 0 {
		return ErrNegativeWeight
	}

	if w.Hydric+w.Vegetation+w.Yield == 0 {
		return ErrZeroWeights
	}

	if c.Epsilon <= 0 {
		return ErrInvalidEpsilon
	}

	return nil
}
