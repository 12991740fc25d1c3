package factors

import (
	"sort"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/fusion"
)

// Design is a dense model matrix: one row per sample, one column per feature.
type Design struct {
	Features []string    `json:"features"`
	X        [][]float64 `json:"-"`
	Y        []float64   `json:"-"`
	// Dropped lists numeric columns that were entirely missing
	Dropped []string `json:"dropped"`
	// Excluded counts rows removed for a missing value
	Excluded int `json:"excluded"`
}

// Len returns the number of samples.
func (d *Design) Len() int {
	return len(d.Y)
}

// Encode turns a fused table into a design matrix. Entirely missing numeric columns are
// dropped, categorical columns become one-hot dummies over their sorted levels with the
// first level dropped (a missing label encodes as all zeros), and rows still holding a
// missing numeric value or no rendement are excluded.
func Encode(table *fusion.Table, parcelID string) (*Design, error) {
	d := &Design{Dropped: []string{}}

	var numeric []int
	for c, name := range table.Numeric {
		present := false
		for i := range table.Rows {
			if !analysis.IsMissing(table.Rows[i].Values[c]) {
				present = true
				break
			}
		}

		if !present {
			d.Dropped = append(d.Dropped, name)
			continue
		}

		numeric = append(numeric, c)
		d.Features = append(d.Features, name)
	}

	type dummy struct {
		column int
		level  string
	}

	var dummies []dummy
	for c, name := range table.Categorical {
		levels := make(map[string]struct{})
		for i := range table.Rows {
			if l := table.Rows[i].Labels[c]; l != "" {
				levels[l] = struct{}{}
			}
		}

		sorted := make([]string, 0, len(levels))
		for l := range levels {
			sorted = append(sorted, l)
		}
		sort.Strings(sorted)

		for _, l := range sorted[min(1, len(sorted)):] {
			dummies = append(dummies, dummy{column: c, level: l})
			d.Features = append(d.Features, name+"_"+l)
		}
	}

rows:
	for i := range table.Rows {
		row := &table.Rows[i]
		if !row.HasRendement() {
			d.Excluded++
			continue
		}

		x := make([]float64, 0, len(d.Features))
		for _, c := range numeric {
			v := row.Values[c]
			if analysis.IsMissing(v) {
				d.Excluded++
				continue rows
			}
			x = append(x, v)
		}

		for _, dm := range dummies {
			if row.Labels[dm.column] == dm.level {
				x = append(x, 1)
			} else {
				x = append(x, 0)
			}
		}

		d.X = append(d.X, x)
		d.Y = append(d.Y, row.Rendement)
	}

	if d.Len() == 0 || len(d.Features) == 0 {
		return nil, analysis.NewError(analysis.ErrEmptyDataset, analysis.StageFactors, parcelID,
			"%d complete rows, %d feature columns", d.Len(), len(d.Features))
	}

	return d, nil
}
