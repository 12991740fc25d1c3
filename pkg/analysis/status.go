package analysis

import "errors"

// Status is the outcome of an analysis for one parcel.
type Status string

const (
	// StatusOK means a result was produced
	StatusOK Status = "ok"
	// StatusNoData means the parcel has no usable records; an expected outcome
	StatusNoData Status = "no_data"
	// StatusInsufficientData means there are too few records for the analysis; an expected outcome
	StatusInsufficientData Status = "insufficient_data"
	// StatusFailed means the analysis hit a contract violation
	StatusFailed Status = "failed"
)

// Expected reports whether the status is a normal outcome of sparse data rather than a failure.
func (s Status) Expected() bool {
	return s == StatusOK || s == StatusNoData || s == StatusInsufficientData
}

// StatusOf maps an error to the status a batch report should record for it.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNoData):
		return StatusNoData
	case errors.Is(err, ErrInsufficientData):
		return StatusInsufficientData
	default:
		return StatusFailed
	}
}
