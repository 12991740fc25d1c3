package loader

import "errors"

var (
	// ErrMissingPath is returned when a required table path is not configured
	ErrMissingPath = errors.New("table path is required")
	// ErrMissingColumn is returned when a required column is absent from a CSV header
	ErrMissingColumn = errors.New("required column missing")
	// ErrInvalidDate is returned when a date cell cannot be parsed
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidNumber is returned when a known numeric cell cannot be parsed
	ErrInvalidNumber = errors.New("invalid number")
	// ErrInvalidDelimiter is returned when the delimiter is not a single character
	ErrInvalidDelimiter = errors.New("delimiter must be a single character")
)
