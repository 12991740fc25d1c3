package risk

import "errors"

// Configuration errors
var (
	// ErrNegativeWeight is returned when a risk weight is negative
	ErrNegativeWeight = errors.New("risk weights cannot be negative")
	// ErrZeroWeights is returned when every risk weight is zero
	ErrZeroWeights = errors.New("at least one risk weight must be positive")
	// ErrInvalidEpsilon is returned when epsilon is not strictly positive
	ErrInvalidEpsilon = errors.New("epsilon must be positive")
)
