package fusion

import "errors"

// Configuration errors
var (
	// ErrInvalidYieldJoin is returned when yieldJoin is neither "date" nor "year"
	ErrInvalidYieldJoin = errors.New("yieldJoin must be one of: date, year")
	// ErrNegativeTolerance is returned when weatherTolerance is negative
	ErrNegativeTolerance = errors.New("weatherTolerance cannot be negative")
)
