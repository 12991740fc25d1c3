package factors

import (
	"math"
	"sort"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/ethpandaops/parcelsight/pkg/fusion"
	"github.com/ethpandaops/parcelsight/pkg/records"
	"github.com/montanaflynn/stats"
)

// Matrix is a labelled correlation matrix. Cells without enough paired observations are NaN
// and encode as null.
type Matrix struct {
	Columns []string          `json:"columns"`
	Values  []analysis.Series `json:"values"`
	// Dropped lists columns left out for having fewer than two values or no variance
	Dropped []string `json:"dropped"`
	// Observations is the number of merged rows the matrix was computed from
	Observations int `json:"observations"`
}

// Index returns the position of a column, or -1.
func (m *Matrix) Index(column string) int {
	for i, c := range m.Columns {
		if c == column {
			return i
		}
	}

	return -1
}

// Get returns the correlation between two columns.
func (m *Matrix) Get(a, b string) (float64, bool) {
	i, j := m.Index(a), m.Index(b)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}

	v := m.Values[i][j]

	return v, !math.IsNaN(v)
}

// Validate checks that the matrix is square and symmetric with a unit diagonal.
func (m *Matrix) Validate() error {
	n := len(m.Columns)
	if len(m.Values) != n {
		return analysis.NewError(analysis.ErrDimensionMismatch, analysis.StageCorrelation, "",
			"%d columns, %d rows", n, len(m.Values))
	}

	for i := range m.Values {
		if len(m.Values[i]) != n {
			return analysis.NewError(analysis.ErrDimensionMismatch, analysis.StageCorrelation, "",
				"row %d has %d values, want %d", i, len(m.Values[i]), n)
		}

		if math.Abs(m.Values[i][i]-1) > 1e-9 {
			return analysis.NewError(analysis.ErrDimensionMismatch, analysis.StageCorrelation, "",
				"diagonal of %s is %v", m.Columns[i], m.Values[i][i])
		}

		for j := 0; j < i; j++ {
			a, b := m.Values[i][j], m.Values[j][i]
			if math.IsNaN(a) != math.IsNaN(b) || (!math.IsNaN(a) && math.Abs(a-b) > 1e-9) {
				return analysis.NewError(analysis.ErrDimensionMismatch, analysis.StageCorrelation, "",
					"%s/%s is not symmetric", m.Columns[i], m.Columns[j])
			}
		}
	}

	return nil
}

// CorrelationMatrix merges yield records with the nearest weather record and the parcel's
// soil record, then computes pairwise-complete Pearson correlations between the numeric
// columns: rendement, rendement_estime, rendement_final, annee, weather measures and soil
// properties.
func CorrelationMatrix(
	yields []records.YieldRecord,
	weather *fusion.WeatherIndex,
	soil []records.SoilRecord,
	cfg *Config,
) (*Matrix, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	soilByParcel := make(map[string]*records.SoilRecord, len(soil))
	for i := range soil {
		soilByParcel[soil[i].ParcelID] = &soil[i]
	}

	cols := newColumnSet(records.ColRendement, records.ColRendementEstime, records.ColRendementFinal, records.ColAnnee)

	type merged struct {
		yield   *records.YieldRecord
		weather *records.WeatherRecord
		soil    *records.SoilRecord
	}

	rows := make([]merged, 0, len(yields))
	var weatherCols, soilCols []string

	for i := range yields {
		row := merged{yield: &yields[i], soil: soilByParcel[yields[i].ParcelID]}
		if w, ok := weather.Nearest(yields[i].Date); ok {
			row.weather = w
			weatherCols = appendKeys(weatherCols, w.Measures)
		}

		if row.soil != nil {
			soilCols = appendKeys(soilCols, row.soil.Measures)
		}

		rows = append(rows, row)
	}

	cols.add(sortedUnique(weatherCols)...)
	cols.add(records.ColCapaciteRetentionEau)
	cols.add(sortedUnique(soilCols)...)

	data := make(map[string][]float64, len(cols.names))
	for _, c := range cols.names {
		data[c] = make([]float64, len(rows))
	}

	for r, row := range rows {
		y := row.yield

		rendement, ok := y.Rendement()
		if !ok {
			rendement = math.NaN()
		}

		data[records.ColRendement][r] = rendement
		data[records.ColRendementEstime][r] = deref(y.RendementEstime)
		data[records.ColRendementFinal][r] = deref(y.RendementFinal)
		data[records.ColAnnee][r] = float64(y.Annee())

		for _, c := range cols.names[4:] {
			data[c][r] = math.NaN()
		}

		if row.weather != nil {
			for name, v := range row.weather.Measures {
				data[name][r] = v
			}
		}

		if row.soil != nil {
			data[records.ColCapaciteRetentionEau][r] = deref(row.soil.CapaciteRetentionEau)
			for name, v := range row.soil.Measures {
				data[name][r] = v
			}
		}
	}

	m := &Matrix{Dropped: []string{}, Observations: len(rows)}
	for _, c := range cols.names {
		if usable(data[c]) {
			m.Columns = append(m.Columns, c)
		} else {
			m.Dropped = append(m.Dropped, c)
		}
	}

	if m.Index(records.ColRendement) < 0 {
		return nil, analysis.NewError(analysis.ErrDataIntegrity, analysis.StageCorrelation, "",
			"%s has fewer than two varying values after the merge", records.ColRendement)
	}

	n := len(m.Columns)
	m.Values = make([]analysis.Series, n)
	for i := range m.Values {
		m.Values[i] = make(analysis.Series, n)
		m.Values[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := pearson(data[m.Columns[i]], data[m.Columns[j]])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// pearson correlates the rows where both values are present. NaN when fewer than two such
// rows remain or either side is constant over them.
func pearson(a, b []float64) float64 {
	var xs, ys []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}

	if !usable(xs) || !usable(ys) {
		return math.NaN()
	}

	r, err := stats.Pearson(xs, ys)
	if err != nil {
		return math.NaN()
	}

	return math.Max(-1, math.Min(1, r))
}

// usable reports whether a column has at least two present values with non-zero variance.
func usable(values []float64) bool {
	var present []float64
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	if len(present) < 2 {
		return false
	}

	v, err := stats.PopulationVariance(present)

	return err == nil && v > 0
}

type columnSet struct {
	names []string
	seen  map[string]struct{}
}

func newColumnSet(names ...string) *columnSet {
	s := &columnSet{seen: make(map[string]struct{})}
	s.add(names...)

	return s
}

func (s *columnSet) add(names ...string) {
	for _, n := range names {
		if _, ok := s.seen[n]; ok {
			continue
		}
		s.seen[n] = struct{}{}
		s.names = append(s.names, n)
	}
}

func appendKeys(dst []string, m map[string]float64) []string {
	for k := range m {
		dst = append(dst, k)
	}

	return dst
}

func sortedUnique(in []string) []string {
	sort.Strings(in)

	out := in[:0]
	for _, s := range in {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}

	return out
}

func deref(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}

	return *p
}
