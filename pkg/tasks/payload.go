// Package tasks defines the per-parcel analysis task carried over Asynq.
package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeParcelAnalysis is the task type for one parcel's analysis
	TypeParcelAnalysis = "parcel:analysis"
	// QueueAnalysis is the unprefixed queue parcel tasks are routed to
	QueueAnalysis = "analysis"
)

var (
	// ErrInvalidPayload is returned when a task payload cannot be decoded
	ErrInvalidPayload = errors.New("invalid task payload")
	// ErrMissingParcel is returned when a task payload names no parcel
	ErrMissingParcel = errors.New("task payload has no parcel id")
)

// ParcelPayload is the payload of a parcel analysis task
type ParcelPayload struct {
	ParcelID   string    `json:"parcelle_id"`
	RunID      string    `json:"run_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// UniqueID identifies the task within its run
func (p ParcelPayload) UniqueID() string {
	return fmt.Sprintf("%s:%s", p.RunID, p.ParcelID)
}

// NewParcelTask encodes a payload into an Asynq task
func NewParcelTask(p ParcelPayload) (*asynq.Task, error) {
	if p.ParcelID == "" {
		return nil, ErrMissingParcel
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeParcelAnalysis, data), nil
}

// ParsePayload decodes the payload of a parcel analysis task
func ParsePayload(t *asynq.Task) (ParcelPayload, error) {
	var p ParcelPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if p.ParcelID == "" {
		return p, ErrMissingParcel
	}

	return p, nil
}
