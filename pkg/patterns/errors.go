package patterns

import "errors"

// Configuration errors
var (
	// ErrInvalidPeriod is returned when the seasonal period is below 1
	ErrInvalidPeriod = errors.New("period must be at least 1")
	// ErrInvalidMinObservations is returned when minObservations is below 2
	ErrInvalidMinObservations = errors.New("minObservations must be at least 2")
	// ErrInvalidEpsilon is returned when epsilon is not strictly positive
	ErrInvalidEpsilon = errors.New("epsilon must be positive")
	// ErrNegativeSigma is returned when breakpointSigma is negative
	ErrNegativeSigma = errors.New("breakpointSigma cannot be negative")
)
