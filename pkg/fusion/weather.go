package fusion

import (
	"sort"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/records"
)

// WeatherIndex answers nearest-date lookups over weather records.
type WeatherIndex struct {
	records   []records.WeatherRecord
	tolerance time.Duration
}

// NewWeatherIndex indexes weather records. The slice is copied and sorted by date.
func NewWeatherIndex(weather []records.WeatherRecord, tolerance time.Duration) *WeatherIndex {
	sorted := make([]records.WeatherRecord, len(weather))
	copy(sorted, weather)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	return &WeatherIndex{records: sorted, tolerance: tolerance}
}

// Nearest returns the weather record closest in time to t. Ties go to the earlier record.
// The second return value is false when there is no weather or the closest record is
// further away than the tolerance.
func (w *WeatherIndex) Nearest(t time.Time) (*records.WeatherRecord, bool) {
	n := len(w.records)
	if n == 0 {
		return nil, false
	}

	i := sort.Search(n, func(i int) bool { return !w.records[i].Date.Before(t) })

	best := i
	switch {
	case i == n:
		best = n - 1
	case i > 0 && t.Sub(w.records[i-1].Date) <= w.records[i].Date.Sub(t):
		best = i - 1
	}

	if w.tolerance > 0 && absDuration(t.Sub(w.records[best].Date)) > w.tolerance {
		return nil, false
	}

	return &w.records[best], true
}

// Len returns the number of indexed records.
func (w *WeatherIndex) Len() int {
	return len(w.records)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}
