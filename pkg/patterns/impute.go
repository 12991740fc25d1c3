package patterns

import (
	"github.com/ethpandaops/parcelsight/pkg/analysis"
)

// Impute fills missing values: interior gaps by linear interpolation between the
// neighbouring known points, then leading and trailing gaps with the mean of the
// interpolated series. It returns the completed copy and the number of filled points.
// A series without any known value is returned unchanged.
func Impute(series analysis.Series) (analysis.Series, int) {
	out := make(analysis.Series, len(series))
	copy(out, series)

	prev := -1
	filled := 0

	for i, v := range out {
		if analysis.IsMissing(v) {
			continue
		}

		if prev >= 0 && i-prev > 1 {
			step := (v - out[prev]) / float64(i-prev)
			for k := prev + 1; k < i; k++ {
				out[k] = out[prev] + step*float64(k-prev)
				filled++
			}
		}
		prev = i
	}

	known := out.Valid()
	if len(known) == 0 {
		return out, 0
	}

	m := mean(known)
	for i, v := range out {
		if analysis.IsMissing(v) {
			out[i] = m
			filled++
		}
	}

	return out, filled
}
