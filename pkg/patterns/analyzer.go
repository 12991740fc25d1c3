// Package patterns decomposes parcel yield histories into trend, seasonal and residual
// components and derives stability and breakpoint signals from them.
package patterns

import (
	"math"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/records"
	"github.com/sirupsen/logrus"
)

// Stability summarises the spread of a yield series.
type Stability struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	CV     float64 `json:"cv"`
}

// Result is the decomposition of one parcel's yield history.
type Result struct {
	Decomposition

	Dates          []time.Time     `json:"dates"`
	Series         analysis.Series `json:"series"`
	Imputed        int             `json:"imputed"`
	Slope          float64         `json:"slope"`
	VariationMean  float64         `json:"variation_mean"`
	StabilityIndex float64         `json:"stability_index"`
	Breakpoints    []int           `json:"breakpoints"`
	Stability      Stability       `json:"stability"`
	// AnnualTrend is the yield slope per year over known values; null when fewer than two
	// distinct years are known
	AnnualTrend analysis.Float `json:"annual_trend"`
}

// Report is the outcome of analysing one parcel.
type Report struct {
	ParcelID     string          `json:"parcelle_id"`
	Status       analysis.Status `json:"status"`
	Observations int             `json:"observations"`
	Result       *Result         `json:"result,omitempty"`
}

// Analyzer runs yield pattern analyses.
type Analyzer struct {
	log logrus.FieldLogger
	cfg *Config
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(log logrus.FieldLogger, cfg *Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		log: log.WithField("component", "patterns"),
		cfg: cfg,
	}, nil
}

// Analyze decomposes a parcel's yield history. history must hold the parcel's records
// ordered by date with duplicate dates merged. Sparse histories are reported through the
// status: no_data when nothing resolves a yield, insufficient_data below minObservations.
func (a *Analyzer) Analyze(parcelID string, history []records.YieldRecord) *Report {
	report := &Report{ParcelID: parcelID, Observations: len(history)}

	series := make(analysis.Series, len(history))
	dates := make([]time.Time, len(history))
	var years, known []float64

	for i := range history {
		dates[i] = history[i].Date
		series[i] = math.NaN()

		if v, ok := history[i].Rendement(); ok {
			series[i] = v
			years = append(years, float64(history[i].Annee()))
			known = append(known, v)
		}
	}

	if len(known) == 0 {
		report.Status = analysis.StatusNoData
		a.log.WithField("parcel", parcelID).Debug("No yield history")

		return report
	}

	if len(history) < a.cfg.MinObservations {
		report.Status = analysis.StatusInsufficientData
		a.log.WithFields(logrus.Fields{
			"parcel":       parcelID,
			"observations": len(history),
			"required":     a.cfg.MinObservations,
		}).Debug("Yield history too short for decomposition")

		return report
	}

	result := a.analyzeSeries(series)
	result.Dates = dates

	result.AnnualTrend = analysis.Float(math.NaN())
	if slope, ok := Slope(years, known); ok {
		result.AnnualTrend = analysis.Float(slope)
	}

	report.Status = analysis.StatusOK
	report.Result = result

	return report
}

func (a *Analyzer) analyzeSeries(raw analysis.Series) *Result {
	series, imputed := Impute(raw)

	d := Decompose(series, a.cfg.Period, a.cfg.ExtrapolateTrend)

	// Slope and variation only see the span where the moving average is defined.
	measured := d
	if a.cfg.ExtrapolateTrend {
		measured = Decompose(series, a.cfg.Period, false)
	}

	m := mean(series)
	std := popStd(series)

	r := &Result{
		Series:        series,
		Decomposition: *d,
		Imputed:       imputed,
		Slope:         IndexSlope(measured.Trend.Valid()),
		Breakpoints:   Breakpoints(series, a.cfg.BreakpointSigma),
		Stability:     Stability{Mean: m, StdDev: std},
	}

	r.StabilityIndex = r.Slope / (std + a.cfg.Epsilon)

	if m != 0 {
		r.Stability.CV = std / m

		if residStd := sampleStd(measured.Resid.Valid()); !math.IsNaN(residStd) {
			r.VariationMean = residStd / m
		}
	}

	return r
}
