package fusion

import "time"

// Yield join keys
const (
	YieldJoinDate = "date"
	YieldJoinYear = "year"
)

// Config controls how the source tables are aligned.
type Config struct {
	// WeatherTolerance bounds the nearest-date weather match; 0 means unbounded
	WeatherTolerance time.Duration `yaml:"weatherTolerance" default:"0s"`
	// YieldJoin selects the yield join key: exact date, or mean yield of the calendar year
	YieldJoin string `yaml:"yieldJoin" default:"date"`
	// ForwardFill fills feature gaps from the previous date of the same parcel
	ForwardFill bool `yaml:"forwardFill" default:"true"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.YieldJoin != YieldJoinDate && c.YieldJoin != YieldJoinYear {
		return ErrInvalidYieldJoin
	}

	if c.WeatherTolerance < 0 {
		return ErrNegativeTolerance
	}

	return nil
}
