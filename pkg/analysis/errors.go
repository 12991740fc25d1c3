// Package analysis holds the error taxonomy and result statuses shared by the analytics stages.
package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrDataIntegrity is returned when a required join key or the target column is missing or empty
	ErrDataIntegrity = errors.New("data integrity violation")
	// ErrInsufficientData is returned when a series is too short for decomposition
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNoData is returned when a parcel has no usable records at all
	ErrNoData = errors.New("no data")
	// ErrEmptyDataset is returned when a feature matrix is empty after filtering
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrDimensionMismatch is returned when a matrix result is not well-formed
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Stage names used in error context and metrics labels
const (
	StageValidation  = "validation"
	StageFusion      = "fusion"
	StageFeatures    = "features"
	StageRisk        = "risk"
	StagePatterns    = "patterns"
	StageFactors     = "factors"
	StageCorrelation = "correlation"
)

// Error carries an error kind together with the stage and parcel it happened in.
type Error struct {
	Kind     error
	Stage    string
	ParcelID string
	Detail   string
}

// NewError builds an *Error with a formatted detail message.
func NewError(kind error, stage, parcelID, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Stage:    stage,
		ParcelID: parcelID,
		Detail:   fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.Stage)
	if e.ParcelID != "" {
		b.WriteString(": parcel ")
		b.WriteString(e.ParcelID)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	return b.String()
}

// Unwrap exposes the kind so errors.Is(err, ErrDataIntegrity) works through wrapping.
func (e *Error) Unwrap() error {
	return e.Kind
}

// WithParcel returns a copy of the error scoped to a parcel.
func (e *Error) WithParcel(parcelID string) *Error {
	c := *e
	c.ParcelID = parcelID

	return &c
}
