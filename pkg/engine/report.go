package engine

import (
	"errors"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/factors"
	"github.com/ethpandaops/parcelsight/pkg/patterns"
	"github.com/ethpandaops/parcelsight/pkg/risk"
)

// Run triggers
const (
	TriggerCLI      = "cli"
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
)

// Failure is a stage error recorded in a report instead of aborting the run.
type Failure struct {
	ParcelID string          `json:"parcelle_id,omitempty"`
	Stage    string          `json:"stage"`
	Status   analysis.Status `json:"status"`
	Error    string          `json:"error"`
}

func newFailure(stage, parcelID string, err error) Failure {
	var aerr *analysis.Error
	if errors.As(err, &aerr) {
		stage = aerr.Stage
		if aerr.ParcelID != "" {
			parcelID = aerr.ParcelID
		}
	}

	return Failure{
		ParcelID: parcelID,
		Stage:    stage,
		Status:   analysis.StatusOf(err),
		Error:    err.Error(),
	}
}

// ParcelReport holds the per-parcel stage results.
type ParcelReport struct {
	ParcelID string               `json:"parcelle_id"`
	Patterns *patterns.Report     `json:"patterns,omitempty"`
	Factors  []factors.Importance `json:"factors,omitempty"`
	Failures []Failure            `json:"failures,omitempty"`
}

func (r *ParcelReport) fail(stage string, err error) {
	r.Failures = append(r.Failures, newFailure(stage, r.ParcelID, err))
}

// Report is the outcome of one batch run.
type Report struct {
	RunID           string                `json:"run_id"`
	GeneratedAt     time.Time             `json:"generated_at"`
	Trigger         string                `json:"trigger"`
	Parcels         []string              `json:"parcels"`
	Risk            *risk.Result          `json:"risk,omitempty"`
	Correlation     *factors.Matrix       `json:"correlation,omitempty"`
	LimitingFactors []factors.Correlation `json:"limiting_factors,omitempty"`
	ParcelReports   []*ParcelReport       `json:"parcel_reports"`
	Failures        []Failure             `json:"failures"`
	// Stages lists the stage graph levels in execution order
	Stages [][]string `json:"stages"`
}

// Parcel returns the report of one parcel.
func (r *Report) Parcel(parcelID string) (*ParcelReport, bool) {
	for _, p := range r.ParcelReports {
		if p.ParcelID == parcelID {
			return p, true
		}
	}

	return nil, false
}

// Failed reports whether any stage failed.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}
