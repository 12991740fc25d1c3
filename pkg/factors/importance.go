// Package factors ranks the drivers of yield variance with a bagged regression tree
// ensemble and measures how yield correlates with weather and soil factors.
package factors

import (
	"context"
	"sort"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/fusion"
	"github.com/sirupsen/logrus"
)

// Importance is the share of yield variance explained by one feature.
type Importance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Analyzer ranks yield factors per parcel.
type Analyzer struct {
	log logrus.FieldLogger
	cfg *Config
}

// NewAnalyzer creates a factor analyzer.
func NewAnalyzer(log logrus.FieldLogger, cfg *Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		log: log.WithField("component", "factors"),
		cfg: cfg,
	}, nil
}

// RankFactors fits the ensemble on the parcel's rows of a fused table and returns feature
// importances sorted descending, ties broken by feature name.
func (a *Analyzer) RankFactors(ctx context.Context, table *fusion.Table, parcelID string) ([]Importance, error) {
	start := time.Now()

	design, err := Encode(table.Filter(parcelID), parcelID)
	if err != nil {
		return nil, err
	}

	forest, err := FitForest(ctx, design, a.cfg)
	if err != nil {
		return nil, err
	}

	ranked := Rank(design.Features, forest.Importances())

	a.log.WithFields(logrus.Fields{
		"parcel":   parcelID,
		"samples":  design.Len(),
		"features": len(design.Features),
		"excluded": design.Excluded,
		"dropped":  len(design.Dropped),
		"duration": time.Since(start),
	}).Debug("Ranked yield factors")

	return ranked, nil
}

// Rank pairs feature names with importances, sorted descending with ties broken by name.
func Rank(features []string, importances []float64) []Importance {
	out := make([]Importance, len(features))
	for i, f := range features {
		out[i] = Importance{Feature: f, Importance: importances[i]}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}

		return out[i].Feature < out[j].Feature
	})

	return out
}
