package factors

// Config holds the factor importance settings.
type Config struct {
	Trees           int    `yaml:"trees" default:"100"`
	Seed            uint64 `yaml:"seed" default:"42"`
	MinSamplesSplit int    `yaml:"minSamplesSplit" default:"2"`
	MinSamplesLeaf  int    `yaml:"minSamplesLeaf" default:"1"`
	// MaxDepth limits tree depth; 0 grows trees until leaves are pure
	MaxDepth int `yaml:"maxDepth" default:"0"`
	// Workers bounds concurrent tree fitting; 0 uses the number of CPUs
	Workers int `yaml:"workers" default:"0"`
	// CorrelationThreshold is the |r| below which a factor is flagged as limiting
	CorrelationThreshold float64 `yaml:"correlationThreshold" default:"0.2"`
}

// DefaultConfig returns 100 trees seeded with 42 and a 0.2 correlation threshold.
func DefaultConfig() *Config {
	return &Config{
		Trees:                100,
		Seed:                 42,
		MinSamplesSplit:      2,
		MinSamplesLeaf:       1,
		CorrelationThreshold: 0.2,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Trees < 1 {
		return ErrInvalidTrees
	}

	if c.MinSamplesSplit < 2 {
		return ErrInvalidMinSamplesSplit
	}

	if c.MinSamplesLeaf < 1 {
		return ErrInvalidMinSamplesLeaf
	}

	if c.MaxDepth < 0 {
		return ErrNegativeMaxDepth
	}

	if c.CorrelationThreshold < 0 || c.CorrelationThreshold > 1 {
		return ErrInvalidThreshold
	}

	return nil
}
