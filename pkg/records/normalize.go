package records

import (
	"maps"
	"sort"
	"time"
)

// Normalize returns a copy of the dataset with duplicate keys merged and every table sorted
// by its key. For duplicated (parcel, date) monitoring and yield rows, duplicated weather
// dates and duplicated soil parcels, the later record's non-missing values override the
// earlier ones. The receiver is not modified.
func (d *Dataset) Normalize() *Dataset {
	return &Dataset{
		Monitoring: normalizeMonitoring(d.Monitoring),
		Weather:    normalizeWeather(d.Weather),
		Soil:       normalizeSoil(d.Soil),
		Yield:      normalizeYield(d.Yield),
	}
}

// Parcels returns the sorted parcel ids that appear in monitoring or yield records.
func (d *Dataset) Parcels() []string {
	seen := make(map[string]struct{})
	for i := range d.Monitoring {
		seen[d.Monitoring[i].ParcelID] = struct{}{}
	}

	for i := range d.Yield {
		seen[d.Yield[i].ParcelID] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)

	return out
}

// YieldHistory returns the parcel's yield records ordered by date.
func (d *Dataset) YieldHistory(parcelID string) []YieldRecord {
	var out []YieldRecord
	for i := range d.Yield {
		if d.Yield[i].ParcelID == parcelID {
			out = append(out, d.Yield[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out
}

type parcelDate struct {
	parcel string
	date   time.Time
}

func (k parcelDate) less(o parcelDate) bool {
	if k.parcel != o.parcel {
		return k.parcel < o.parcel
	}

	return k.date.Before(o.date)
}

func normalizeMonitoring(in []MonitoringObservation) []MonitoringObservation {
	index := make(map[parcelDate]int, len(in))
	out := make([]MonitoringObservation, 0, len(in))

	for i := range in {
		m := in[i]
		key := parcelDate{m.ParcelID, m.Date.UTC()}

		pos, dup := index[key]
		if !dup {
			m.Measures = maps.Clone(m.Measures)
			m.Labels = maps.Clone(m.Labels)
			index[key] = len(out)
			out = append(out, m)

			continue
		}

		prev := &out[pos]
		prev.NDVI = override(prev.NDVI, m.NDVI)
		prev.LAI = override(prev.LAI, m.LAI)
		prev.StressHydrique = override(prev.StressHydrique, m.StressHydrique)
		prev.Latitude = override(prev.Latitude, m.Latitude)
		prev.Longitude = override(prev.Longitude, m.Longitude)
		prev.Measures = mergeFloats(prev.Measures, m.Measures)
		prev.Labels = mergeStrings(prev.Labels, m.Labels)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return parcelDate{out[i].ParcelID, out[i].Date}.less(parcelDate{out[j].ParcelID, out[j].Date})
	})

	return out
}

func normalizeWeather(in []WeatherRecord) []WeatherRecord {
	index := make(map[time.Time]int, len(in))
	out := make([]WeatherRecord, 0, len(in))

	for i := range in {
		w := in[i]
		key := w.Date.UTC()

		pos, dup := index[key]
		if !dup {
			w.Measures = maps.Clone(w.Measures)
			w.Labels = maps.Clone(w.Labels)
			index[key] = len(out)
			out = append(out, w)

			continue
		}

		out[pos].Measures = mergeFloats(out[pos].Measures, w.Measures)
		out[pos].Labels = mergeStrings(out[pos].Labels, w.Labels)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out
}

func normalizeSoil(in []SoilRecord) []SoilRecord {
	index := make(map[string]int, len(in))
	out := make([]SoilRecord, 0, len(in))

	for i := range in {
		s := in[i]

		pos, dup := index[s.ParcelID]
		if !dup {
			s.Measures = maps.Clone(s.Measures)
			s.Labels = maps.Clone(s.Labels)
			index[s.ParcelID] = len(out)
			out = append(out, s)

			continue
		}

		prev := &out[pos]
		prev.CapaciteRetentionEau = override(prev.CapaciteRetentionEau, s.CapaciteRetentionEau)
		prev.Measures = mergeFloats(prev.Measures, s.Measures)
		prev.Labels = mergeStrings(prev.Labels, s.Labels)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ParcelID < out[j].ParcelID })

	return out
}

func normalizeYield(in []YieldRecord) []YieldRecord {
	index := make(map[parcelDate]int, len(in))
	out := make([]YieldRecord, 0, len(in))

	for i := range in {
		y := in[i]
		key := parcelDate{y.ParcelID, y.Date.UTC()}

		pos, dup := index[key]
		if !dup {
			index[key] = len(out)
			out = append(out, y)

			continue
		}

		out[pos].RendementEstime = override(out[pos].RendementEstime, y.RendementEstime)
		out[pos].RendementFinal = override(out[pos].RendementFinal, y.RendementFinal)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return parcelDate{out[i].ParcelID, out[i].Date}.less(parcelDate{out[j].ParcelID, out[j].Date})
	})

	return out
}

func override(prev, next *float64) *float64 {
	if v, ok := value(next); ok {
		return Float(v)
	}

	return prev
}

func mergeFloats(dst, src map[string]float64) map[string]float64 {
	for k, v := range src {
		if isMissing(v) {
			continue
		}

		if dst == nil {
			dst = make(map[string]float64, len(src))
		}
		dst[k] = v
	}

	return dst
}

func mergeStrings(dst, src map[string]string) map[string]string {
	for k, v := range src {
		if v == "" {
			continue
		}

		if dst == nil {
			dst = make(map[string]string, len(src))
		}
		dst[k] = v
	}

	return dst
}
