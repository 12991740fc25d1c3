package loader

import "unicode/utf8"

// Config holds the paths of the four source CSV tables.
type Config struct {
	Monitoring string `yaml:"monitoring"`
	Weather    string `yaml:"weather"`
	Soil       string `yaml:"soil"`
	Yield      string `yaml:"yield"`
	Delimiter  string `yaml:"delimiter" default:","`
}

// Validate checks if the configuration is valid. Weather and soil tables are optional.
func (c *Config) Validate() error {
	if c.Monitoring == "" {
		return ErrMissingPath
	}

	if c.Yield == "" {
		return ErrMissingPath
	}

	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return ErrInvalidDelimiter
	}

	return nil
}

func (c *Config) comma() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)

	return r
}
