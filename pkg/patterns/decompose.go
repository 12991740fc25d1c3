package patterns

import (
	"math"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
)

// Decomposition is an additive split of a series into trend, seasonal and residual parts.
type Decomposition struct {
	Trend    analysis.Series `json:"trend"`
	Seasonal analysis.Series `json:"seasonal"`
	Resid    analysis.Series `json:"resid"`
	// Period is the seasonal period actually used
	Period int `json:"period"`
}

// EffectivePeriod returns the period usable for a series of length n: the requested period
// when the series covers two full cycles, otherwise ⌊n/2⌋.
func EffectivePeriod(n, period int) int {
	if n < 2*period {
		return n / 2
	}

	return period
}

// Decompose splits a complete series (no missing values) additively. The trend is a centred
// moving average over one period (a 2×p average for even p); the seasonal part is the
// zero-centred mean of the detrended values at each phase; the residual is what remains.
// Periods below 2 carry no seasonality: the trend is the series itself.
//
// Without extrapolation the trend and residual are NaN where the moving-average window does
// not fit. With extrapolation the trend is extended linearly from the nearest defined
// values so every component is defined and Trend+Seasonal+Resid reproduces the series.
func Decompose(series []float64, period int, extrapolate bool) *Decomposition {
	n := len(series)
	p := EffectivePeriod(n, period)

	d := &Decomposition{
		Trend:    make(analysis.Series, n),
		Seasonal: make(analysis.Series, n),
		Resid:    make(analysis.Series, n),
		Period:   p,
	}

	if p < 2 {
		copy(d.Trend, series)
		d.Period = 1

		return d
	}

	movingAverage(series, p, d.Trend)

	if extrapolate {
		extrapolateTrend(d.Trend, p)
	}

	phase := make([]float64, p)
	counts := make([]int, p)

	for i, v := range series {
		if math.IsNaN(d.Trend[i]) {
			continue
		}
		phase[i%p] += v - d.Trend[i]
		counts[i%p]++
	}

	for j := range phase {
		if counts[j] > 0 {
			phase[j] /= float64(counts[j])
		}
	}

	centre := mean(phase)
	for j := range phase {
		phase[j] -= centre
	}

	for i, v := range series {
		d.Seasonal[i] = phase[i%p]
		d.Resid[i] = v - d.Trend[i] - d.Seasonal[i]
	}

	return d
}

// movingAverage writes the centred moving average of xs into out, NaN at the ends.
func movingAverage(xs []float64, p int, out []float64) {
	n := len(xs)
	half := p / 2

	for i := range out {
		out[i] = math.NaN()
	}

	for i := half; i < n-half; i++ {
		var sum float64

		if p%2 == 1 {
			for k := i - half; k <= i+half; k++ {
				sum += xs[k]
			}
		} else {
			sum = 0.5*xs[i-half] + 0.5*xs[i+half]
			for k := i - half + 1; k < i+half; k++ {
				sum += xs[k]
			}
		}

		out[i] = sum / float64(p)
	}
}

// extrapolateTrend fills the NaN ends of a moving-average trend with least-squares lines
// fitted to the closest defined values on each side.
func extrapolateTrend(trend []float64, p int) {
	first, last := -1, -1
	for i, v := range trend {
		if math.IsNaN(v) {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}

	if first < 0 {
		return
	}

	k := p/2 + 1
	if defined := last - first + 1; defined < k {
		k = defined
	}

	fill := func(from, to int, fitStart int) {
		xs := make([]float64, k)
		ys := make([]float64, k)
		for j := 0; j < k; j++ {
			xs[j] = float64(fitStart + j)
			ys[j] = trend[fitStart+j]
		}

		slope, ok := Slope(xs, ys)
		if !ok {
			slope = 0
		}
		intercept := mean(ys) - slope*mean(xs)

		for i := from; i < to; i++ {
			trend[i] = intercept + slope*float64(i)
		}
	}

	fill(0, first, first)
	fill(last+1, len(trend), last-k+1)
}
