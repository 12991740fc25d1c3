// Package risk computes hydric and composite agronomic risk scores.
package risk

import (
	"time"

	"github.com/ethpandaops/parcelsight/pkg/fusion"
	"github.com/ethpandaops/parcelsight/pkg/records"
)

// Skip reasons reported for rows that cannot be scored
const (
	ReasonMissingNDVI     = "missing ndvi"
	ReasonMissingStress   = "missing stress_hydrique"
	ReasonMissingCapacity = "missing capacite_retention_eau"
	ReasonNoYieldHistory  = "no historical mean yield"
)

// Observation holds the inputs of one risk computation.
type Observation struct {
	ParcelID             string
	Date                 time.Time
	NDVI                 float64
	StressHydrique       float64
	CapaciteRetentionEau float64
	RendementMoyen       float64
}

// Score is the risk of one parcel on one date.
type Score struct {
	ParcelID       string    `json:"parcelle_id"`
	Date           time.Time `json:"date"`
	RisqueHydrique float64   `json:"risque_hydrique"`
	RisqueGlobal   float64   `json:"risque_global"`
}

// Skipped is a row that was not scored.
type Skipped struct {
	ParcelID string    `json:"parcelle_id"`
	Date     time.Time `json:"date"`
	Reason   string    `json:"reason"`
}

// Result holds the scores of a table together with the rows that could not be scored.
type Result struct {
	Scores  []Score   `json:"scores"`
	Skipped []Skipped `json:"skipped"`
}

// Scorer computes risk against a fixed maximum historical mean yield.
type Scorer struct {
	cfg      *Config
	maxYield float64
}

// NewScorer builds a scorer. maxYield is the largest per-parcel historical mean yield of
// the dataset being scored.
func NewScorer(cfg *Config, maxYield float64) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Scorer{cfg: cfg, maxYield: maxYield}, nil
}

// Hydric returns stress / (capacity + epsilon).
func (s *Scorer) Hydric(stress, capacity float64) float64 {
	return stress / (capacity + s.cfg.Epsilon)
}

// Score computes the risk of one observation. Inputs must be present.
func (s *Scorer) Score(o Observation) Score {
	w := s.cfg.Weights
	hydric := s.Hydric(o.StressHydrique, o.CapaciteRetentionEau)

	global := w.Hydric*hydric +
		w.Vegetation*(1-o.NDVI) +
		w.Yield*(1-o.RendementMoyen/(s.maxYield+s.cfg.Epsilon))

	return Score{
		ParcelID:       o.ParcelID,
		Date:           o.Date,
		RisqueHydrique: hydric,
		RisqueGlobal:   global,
	}
}

// ScoreTable scores every row of a feature table. The maximum mean yield is taken from the
// table. Rows missing an input are reported in Skipped.
func ScoreTable(cfg *Config, table *fusion.Table) (*Result, error) {
	s, err := NewScorer(cfg, table.MaxYieldMean())
	if err != nil {
		return nil, err
	}

	return s.ScoreTable(table), nil
}

// ScoreTable scores every row of a feature table with the scorer's maximum mean yield.
func (s *Scorer) ScoreTable(table *fusion.Table) *Result {
	result := &Result{
		Scores:  make([]Score, 0, table.Len()),
		Skipped: []Skipped{},
	}

	for i := range table.Rows {
		o, reason := FromTable(table, i)
		if reason != "" {
			result.Skipped = append(result.Skipped, Skipped{
				ParcelID: table.Rows[i].ParcelID,
				Date:     table.Rows[i].Date,
				Reason:   reason,
			})

			continue
		}

		result.Scores = append(result.Scores, s.Score(o))
	}

	return result
}

// FromTable extracts the risk inputs of row i. The returned reason is non-empty when an
// input is missing.
func FromTable(table *fusion.Table, i int) (Observation, string) {
	row := &table.Rows[i]
	o := Observation{ParcelID: row.ParcelID, Date: row.Date}

	var ok bool
	if o.NDVI, ok = table.Value(i, records.ColNDVI); !ok {
		return o, ReasonMissingNDVI
	}

	if o.StressHydrique, ok = table.Value(i, records.ColStressHydrique); !ok {
		return o, ReasonMissingStress
	}

	if o.CapaciteRetentionEau, ok = table.Value(i, records.ColCapaciteRetentionEau); !ok {
		return o, ReasonMissingCapacity
	}

	if o.RendementMoyen, ok = table.YieldMean(row.ParcelID); !ok {
		return o, ReasonNoYieldHistory
	}

	return o, ""
}
