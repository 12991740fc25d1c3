package fusion

import (
	"encoding/json"
	"math"
	"slices"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/records"
)

// Observation is one fused (parcel, date) row. Values and Labels are aligned with the
// owning table's Numeric and Categorical columns; NaN and "" mark missing entries.
type Observation struct {
	ParcelID  string          `json:"parcelle_id"`
	Date      time.Time       `json:"date"`
	Rendement float64         `json:"-"`
	Values    analysis.Series `json:"values"`
	Labels    []string        `json:"labels"`
}

// MarshalJSON encodes an unresolved rendement as null.
func (o Observation) MarshalJSON() ([]byte, error) {
	type plain Observation

	return json.Marshal(struct {
		plain
		Rendement analysis.Float `json:"rendement"`
	}{plain: plain(o), Rendement: analysis.Float(o.Rendement)})
}

// HasRendement reports whether the row carries a resolved yield.
func (o *Observation) HasRendement() bool {
	return !analysis.IsMissing(o.Rendement)
}

// Table is a fused, column-typed table ordered by (parcel, date). Tables are not modified
// after construction; filters share rows with their parent.
type Table struct {
	Numeric     []string           `json:"numeric"`
	Categorical []string           `json:"categorical"`
	Rows        []Observation      `json:"rows"`
	YieldMeans  map[string]float64 `json:"rendement_moyen"` // historical mean yield per parcel
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Columns returns identifiers, target and feature columns in table order.
func (t *Table) Columns() []string {
	cols := make([]string, 0, 3+len(t.Numeric)+len(t.Categorical))
	cols = append(cols, records.ColParcelID, records.ColDate, records.ColRendement)
	cols = append(cols, t.Numeric...)

	return append(cols, t.Categorical...)
}

// IsFeature reports whether a column may be used as a model input.
func (t *Table) IsFeature(column string) bool {
	return slices.Contains(t.Numeric, column) || slices.Contains(t.Categorical, column)
}

// NumericIndex returns the position of a numeric column, or -1.
func (t *Table) NumericIndex(column string) int {
	return slices.Index(t.Numeric, column)
}

// CategoricalIndex returns the position of a categorical column, or -1.
func (t *Table) CategoricalIndex(column string) int {
	return slices.Index(t.Categorical, column)
}

// Value returns a numeric cell. The second return value is false when the column is
// unknown or the cell is missing.
func (t *Table) Value(row int, column string) (float64, bool) {
	idx := t.NumericIndex(column)
	if idx < 0 {
		return math.NaN(), false
	}

	v := t.Rows[row].Values[idx]

	return v, !analysis.IsMissing(v)
}

// Label returns a categorical cell, "" when missing.
func (t *Table) Label(row int, column string) string {
	idx := t.CategoricalIndex(column)
	if idx < 0 {
		return ""
	}

	return t.Rows[row].Labels[idx]
}

// Filter returns the rows of one parcel as a new table sharing column metadata.
func (t *Table) Filter(parcelID string) *Table {
	out := &Table{
		Numeric:     t.Numeric,
		Categorical: t.Categorical,
		YieldMeans:  t.YieldMeans,
	}

	for i := range t.Rows {
		if t.Rows[i].ParcelID == parcelID {
			out.Rows = append(out.Rows, t.Rows[i])
		}
	}

	return out
}

// Parcels returns the distinct parcel ids in row order.
func (t *Table) Parcels() []string {
	var out []string
	for i := range t.Rows {
		if len(out) == 0 || out[len(out)-1] != t.Rows[i].ParcelID {
			out = append(out, t.Rows[i].ParcelID)
		}
	}

	return out
}

// YieldMean returns the historical mean yield of a parcel.
func (t *Table) YieldMean(parcelID string) (float64, bool) {
	v, ok := t.YieldMeans[parcelID]

	return v, ok && !analysis.IsMissing(v)
}

// MaxYieldMean returns the largest historical mean yield across parcels, or NaN when there
// is none.
func (t *Table) MaxYieldMean() float64 {
	best := math.NaN()
	for _, v := range t.YieldMeans {
		if analysis.IsMissing(v) {
			continue
		}

		if math.IsNaN(best) || v > best {
			best = v
		}
	}

	return best
}
