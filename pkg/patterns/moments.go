package patterns

import (
	"math"

	"github.com/montanaflynn/stats"
)

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return math.NaN()
	}

	return m
}

func popStd(xs []float64) float64 {
	s, err := stats.StandardDeviationPopulation(xs)
	if err != nil {
		return math.NaN()
	}

	return s
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}

	s, err := stats.StandardDeviationSample(xs)
	if err != nil {
		return math.NaN()
	}

	return s
}

// Slope returns the least-squares slope of y against x. The second return value is false
// when fewer than two points are given or x does not vary.
func Slope(x, y []float64) (float64, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, false
	}

	varX, err := stats.PopulationVariance(x)
	if err != nil || varX == 0 {
		return 0, false
	}

	cov, err := stats.CovariancePopulation(x, y)
	if err != nil {
		return 0, false
	}

	return cov / varX, true
}

// IndexSlope returns the least-squares slope of ys against 0..len(ys)-1, or 0 when it is
// undefined.
func IndexSlope(ys []float64) float64 {
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}

	s, ok := Slope(xs, ys)
	if !ok {
		return 0
	}

	return s
}
