package factors

import (
	"math"
	"sort"

	"github.com/ethpandaops/parcelsight/pkg/records"
)

// Correlation is a factor's correlation with rendement.
type Correlation struct {
	Factor      string  `json:"factor"`
	Coefficient float64 `json:"coefficient"`
}

// targetDerived columns restate the yield itself and are never factors.
//
//nolint:gochecknoglobals // read-only lookup table
var targetDerived = map[string]struct{}{
	records.ColRendement:       {},
	records.ColRendementEstime: {},
	records.ColRendementFinal:  {},
	records.ColRendementMoyen:  {},
}

// LimitingFactors flags the factors whose correlation with rendement has an absolute value
// below threshold: weak drivers that may be limiting. A heuristic screen, not a causal
// claim. Results are ordered by |r| ascending, then name.
func LimitingFactors(m *Matrix, threshold float64) []Correlation {
	out := []Correlation{}

	for _, c := range m.Columns {
		if _, skip := targetDerived[c]; skip {
			continue
		}

		r, ok := m.Get(records.ColRendement, c)
		if !ok || math.Abs(r) >= threshold {
			continue
		}

		out = append(out, Correlation{Factor: c, Coefficient: r})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Coefficient), math.Abs(out[j].Coefficient)
		if ai != aj {
			return ai < aj
		}

		return out[i].Factor < out[j].Factor
	})

	return out
}

// YieldCorrelations returns every factor's correlation with rendement, strongest first.
func YieldCorrelations(m *Matrix) []Correlation {
	out := []Correlation{}

	for _, c := range m.Columns {
		if _, skip := targetDerived[c]; skip {
			continue
		}

		if r, ok := m.Get(records.ColRendement, c); ok {
			out = append(out, Correlation{Factor: c, Coefficient: r})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Coefficient), math.Abs(out[j].Coefficient)
		if ai != aj {
			return ai > aj
		}

		return out[i].Factor < out[j].Factor
	})

	return out
}
