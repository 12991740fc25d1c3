package factors

import "errors"

// Configuration errors
var (
	// ErrInvalidTrees is returned when the ensemble size is below 1
	ErrInvalidTrees = errors.New("trees must be at least 1")
	// ErrInvalidMinSamplesSplit is returned when minSamplesSplit is below 2
	ErrInvalidMinSamplesSplit = errors.New("minSamplesSplit must be at least 2")
	// ErrInvalidMinSamplesLeaf is returned when minSamplesLeaf is below 1
	ErrInvalidMinSamplesLeaf = errors.New("minSamplesLeaf must be at least 1")
	// ErrNegativeMaxDepth is returned when maxDepth is negative
	ErrNegativeMaxDepth = errors.New("maxDepth cannot be negative")
	// ErrInvalidThreshold is returned when correlationThreshold is outside [0, 1]
	ErrInvalidThreshold = errors.New("correlationThreshold must be between 0 and 1")
)
