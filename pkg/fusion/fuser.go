// Package fusion aligns the monitoring, weather, soil and yield tables into one per-parcel,
// per-date feature table.
package fusion

import (
	"math"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/records"
	"github.com/sirupsen/logrus"
)

// Fuser builds fused tables from one validated, normalized dataset.
type Fuser struct {
	log     logrus.FieldLogger
	cfg     *Config
	dataset *records.Dataset
	schema  records.Schema
	weather *WeatherIndex
}

// NewFuser validates the dataset once and prepares it for fusion.
func NewFuser(log logrus.FieldLogger, cfg *Config, dataset *records.Dataset) (*Fuser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataset = dataset.Disambiguate()
	if err := dataset.Validate(); err != nil {
		return nil, err
	}

	normalized := dataset.Normalize()

	return &Fuser{
		log:     log.WithField("component", "fusion"),
		cfg:     cfg,
		dataset: normalized,
		schema:  normalized.Schema(),
		weather: NewWeatherIndex(normalized.Weather, cfg.WeatherTolerance),
	}, nil
}

// Fuse is a convenience wrapper around NewFuser and Fuser.Fuse.
func Fuse(log logrus.FieldLogger, cfg *Config, dataset *records.Dataset) (*Table, error) {
	f, err := NewFuser(log, cfg, dataset)
	if err != nil {
		return nil, err
	}

	return f.Fuse()
}

// Dataset returns the normalized dataset the fuser works on.
func (f *Fuser) Dataset() *records.Dataset {
	return f.dataset
}

// Schema returns the column schema of the dataset.
func (f *Fuser) Schema() records.Schema {
	return f.schema
}

// Weather returns the nearest-date weather index.
func (f *Fuser) Weather() *WeatherIndex {
	return f.weather
}

// Fuse joins the four tables and keeps only rows with a resolved rendement.
func (f *Fuser) Fuse() (*Table, error) {
	table := f.join()

	if !f.hasYield() {
		return nil, analysis.NewError(analysis.ErrDataIntegrity, analysis.StageFusion, "",
			"no yield record resolves a %s", records.ColRendement)
	}

	kept := table.Rows[:0:0]
	for i := range table.Rows {
		if table.Rows[i].HasRendement() {
			kept = append(kept, table.Rows[i])
		}
	}

	f.log.WithFields(logrus.Fields{
		"rows":    len(kept),
		"dropped": len(table.Rows) - len(kept),
	}).Debug("Dropped rows without resolved rendement")

	table.Rows = kept
	if len(table.Rows) == 0 {
		return nil, analysis.NewError(analysis.ErrDataIntegrity, analysis.StageFusion, "",
			"no overlapping (parcel, date) keys between monitoring and yield")
	}

	return table, nil
}

// Features returns the risk-ready table: every monitoring row joined with weather and soil,
// carrying rendement where it resolves and the per-parcel historical mean yield.
func (f *Fuser) Features() (*Table, error) {
	table := f.join()
	if len(table.Rows) == 0 {
		return nil, analysis.NewError(analysis.ErrDataIntegrity, analysis.StageFeatures, "",
			"no monitoring observations")
	}

	return table, nil
}

func (f *Fuser) hasYield() bool {
	for i := range f.dataset.Yield {
		if _, ok := f.dataset.Yield[i].Rendement(); ok {
			return true
		}
	}

	return false
}

type yieldKey struct {
	parcel string
	date   time.Time
	year   int
}

func (f *Fuser) join() *Table {
	table := &Table{
		Numeric:     f.schema.Numeric(),
		Categorical: f.schema.Categorical(),
		Rows:        make([]Observation, 0, len(f.dataset.Monitoring)),
		YieldMeans:  f.yieldMeans(),
	}

	numIdx := indexOf(table.Numeric)
	catIdx := indexOf(table.Categorical)

	soil := make(map[string]*records.SoilRecord, len(f.dataset.Soil))
	for i := range f.dataset.Soil {
		soil[f.dataset.Soil[i].ParcelID] = &f.dataset.Soil[i]
	}

	yields := f.yieldLookup()

	var unmatchedWeather, unmatchedSoil int

	for i := range f.dataset.Monitoring {
		m := &f.dataset.Monitoring[i]

		row := Observation{
			ParcelID:  m.ParcelID,
			Date:      m.Date,
			Rendement: math.NaN(),
			Values:    nanSeries(len(table.Numeric)),
			Labels:    make([]string, len(table.Categorical)),
		}

		set := func(name string, v *float64) {
			if v != nil {
				row.Values[numIdx[name]] = *v
			}
		}
		set(records.ColNDVI, m.NDVI)
		set(records.ColLAI, m.LAI)
		set(records.ColStressHydrique, m.StressHydrique)
		set(records.ColLatitude, m.Latitude)
		set(records.ColLongitude, m.Longitude)
		putAll(row.Values, numIdx, m.Measures)
		putLabels(row.Labels, catIdx, m.Labels)

		if w, ok := f.weather.Nearest(m.Date); ok {
			putAll(row.Values, numIdx, w.Measures)
			putLabels(row.Labels, catIdx, w.Labels)
		} else {
			unmatchedWeather++
		}

		if s, ok := soil[m.ParcelID]; ok {
			set(records.ColCapaciteRetentionEau, s.CapaciteRetentionEau)
			putAll(row.Values, numIdx, s.Measures)
			putLabels(row.Labels, catIdx, s.Labels)
		} else {
			unmatchedSoil++
		}

		if v, ok := yields[f.yieldKeyFor(m.ParcelID, m.Date)]; ok {
			row.Rendement = v
		}

		table.Rows = append(table.Rows, row)
	}

	filled := 0
	if f.cfg.ForwardFill {
		filled = forwardFill(table.Rows)
	}

	f.log.WithFields(logrus.Fields{
		"rows":            len(table.Rows),
		"without_weather": unmatchedWeather,
		"without_soil":    unmatchedSoil,
		"forward_filled":  filled,
	}).Debug("Joined source tables")

	return table
}

func (f *Fuser) yieldKeyFor(parcelID string, date time.Time) yieldKey {
	if f.cfg.YieldJoin == YieldJoinYear {
		return yieldKey{parcel: parcelID, year: date.Year()}
	}

	return yieldKey{parcel: parcelID, date: date.UTC()}
}

// yieldLookup maps join keys to resolved rendement. Yearly keys hold the mean of the
// year's resolved values.
func (f *Fuser) yieldLookup() map[yieldKey]float64 {
	sums := make(map[yieldKey]float64)
	counts := make(map[yieldKey]int)

	for i := range f.dataset.Yield {
		y := &f.dataset.Yield[i]

		v, ok := y.Rendement()
		if !ok {
			continue
		}

		key := f.yieldKeyFor(y.ParcelID, y.Date)
		sums[key] += v
		counts[key]++
	}

	out := make(map[yieldKey]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}

	return out
}

// yieldMeans computes rendement_moyen per parcel over its whole yield history.
func (f *Fuser) yieldMeans() map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for i := range f.dataset.Yield {
		if v, ok := f.dataset.Yield[i].Rendement(); ok {
			sums[f.dataset.Yield[i].ParcelID] += v
			counts[f.dataset.Yield[i].ParcelID]++
		}
	}

	out := make(map[string]float64, len(sums))
	for p, sum := range sums {
		out[p] = sum / float64(counts[p])
	}

	return out
}

// forwardFill carries the last known feature values forward in date order within each
// parcel. Rows must already be ordered by (parcel, date). The target is left alone.
func forwardFill(rows []Observation) int {
	filled := 0

	for i := 1; i < len(rows); i++ {
		prev, cur := &rows[i-1], &rows[i]
		if prev.ParcelID != cur.ParcelID {
			continue
		}

		for c, v := range cur.Values {
			if analysis.IsMissing(v) && !analysis.IsMissing(prev.Values[c]) {
				cur.Values[c] = prev.Values[c]
				filled++
			}
		}

		for c, v := range cur.Labels {
			if v == "" && prev.Labels[c] != "" {
				cur.Labels[c] = prev.Labels[c]
				filled++
			}
		}
	}

	return filled
}

func indexOf(names []string) map[string]int {
	out := make(map[string]int, len(names))
	for i, n := range names {
		out[n] = i
	}

	return out
}

func nanSeries(n int) analysis.Series {
	s := make(analysis.Series, n)
	for i := range s {
		s[i] = math.NaN()
	}

	return s
}

func putAll(dst analysis.Series, idx map[string]int, values map[string]float64) {
	for name, v := range values {
		if i, ok := idx[name]; ok {
			dst[i] = v
		}
	}
}

func putLabels(dst []string, idx map[string]int, labels map[string]string) {
	for name, v := range labels {
		if i, ok := idx[name]; ok {
			dst[i] = v
		}
	}
}
