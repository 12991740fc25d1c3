package patterns

// Breakpoints flags every index i ≥ 1 whose step from the previous value exceeds sigma
// times the population standard deviation of the series. It is a threshold heuristic, not
// a changepoint test: a single spike flags both the jump and the return.
func Breakpoints(series []float64, sigma float64) []int {
	out := []int{}
	if len(series) < 2 {
		return out
	}

	threshold := sigma * popStd(series)

	for i := 1; i < len(series); i++ {
		step := series[i] - series[i-1]
		if step < 0 {
			step = -step
		}

		if step > threshold {
			out = append(out, i)
		}
	}

	return out
}
