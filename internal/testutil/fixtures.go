package testutil

import (
	"math"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/records"
)

// Parcel ids of the fixture dataset. P003 has no soil record and too little yield history
// for decomposition.
const (
	ParcelA = "P001"
	ParcelB = "P002"
	ParcelC = "P003"
)

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SeasonStart is the first monitoring date of the fixture season.
//
//nolint:gochecknoglobals // fixture constant
var SeasonStart = Day(2023, time.May, 1)

// MonitoringDate returns the k-th fortnightly monitoring date of the fixture season.
func MonitoringDate(k int) time.Time {
	return SeasonStart.AddDate(0, 0, 14*k)
}

// Dataset returns a small deterministic dataset covering three parcels: six fortnightly
// monitoring dates for P001 and P002, three for P003, weather every three days, soil for
// P001 and P002, and yield entries on the monitoring dates plus yearly history.
func Dataset() *records.Dataset {
	d := &records.Dataset{}

	parcels := []struct {
		id      string
		offset  float64
		samples int
		culture string
	}{
		{ParcelA, 0, 6, "ble"},
		{ParcelB, 0.1, 6, "mais"},
		{ParcelC, 0.2, 3, "ble"},
	}

	for pi, p := range parcels {
		for k := 0; k < p.samples; k++ {
			ndvi := 0.45 + 0.06*float64(k) - p.offset + 0.01*float64(k%2)
			d.Monitoring = append(d.Monitoring, records.MonitoringObservation{
				ParcelID:       p.id,
				Date:           MonitoringDate(k),
				NDVI:           records.Float(ndvi),
				LAI:            records.Float(1.2 + 0.4*float64(k) - p.offset),
				StressHydrique: records.Float(0.15 + 0.05*float64((k+pi)%4)),
				Latitude:       records.Float(43.6 + 0.01*float64(pi)),
				Longitude:      records.Float(1.44 + 0.01*float64(pi)),
				Measures:       map[string]float64{"temperature_sol": 11 + float64(k) + float64(pi)},
				Labels:         map[string]string{"culture": p.culture, "stade": stage(k)},
			})

			d.Yield = append(d.Yield, records.YieldRecord{
				ParcelID:        p.id,
				Date:            MonitoringDate(k),
				RendementEstime: records.Float(3.5 + 6*ndvi),
			})
		}
	}

	for i := 0; i < 35; i++ {
		d.Weather = append(d.Weather, records.WeatherRecord{
			Date: SeasonStart.AddDate(0, 0, 3*i-2),
			Measures: map[string]float64{
				"temperature":   14 + 0.3*float64(i),
				"precipitation": float64((i * 7) % 11),
				"rayonnement":   180 + 4*float64(i%5),
			},
		})
	}

	d.Soil = []records.SoilRecord{
		{
			ParcelID:             ParcelA,
			CapaciteRetentionEau: records.Float(0.32),
			Measures:             map[string]float64{"ph": 6.8, "matiere_organique": 2.1},
			Labels:               map[string]string{"texture": "limon"},
		},
		{
			ParcelID:             ParcelB,
			CapaciteRetentionEau: records.Float(0.21),
			Measures:             map[string]float64{"ph": 7.4, "matiere_organique": 1.6},
			Labels:               map[string]string{"texture": "argile"},
		},
	}

	// yearly history: P001 trending up, P002 flat, P003 too short
	for year := 2011; year <= 2022; year++ {
		n := float64(year - 2011)
		d.Yield = append(d.Yield,
			records.YieldRecord{ParcelID: ParcelA, Date: Day(year, time.September, 15),
				RendementFinal: records.Float(5 + 0.25*n)},
			records.YieldRecord{ParcelID: ParcelB, Date: Day(year, time.September, 15),
				RendementFinal: records.Float(6 + 0.3*float64(year%2))},
		)
	}

	d.Yield = append(d.Yield,
		records.YieldRecord{ParcelID: ParcelC, Date: Day(2021, time.September, 15), RendementFinal: records.Float(4.8)},
		records.YieldRecord{ParcelID: ParcelC, Date: Day(2022, time.September, 15), RendementFinal: records.Float(5.1)},
	)

	return d
}

// YieldSeries builds a yield history for one parcel with one record per month starting in
// January 2010. NaN values become records without any rendement.
func YieldSeries(parcelID string, values ...float64) []records.YieldRecord {
	out := make([]records.YieldRecord, 0, len(values))
	for i, v := range values {
		r := records.YieldRecord{ParcelID: parcelID, Date: Day(2010, time.January, 1).AddDate(0, i, 0)}
		if !math.IsNaN(v) {
			r.RendementFinal = records.Float(v)
		}
		out = append(out, r)
	}

	return out
}

func stage(k int) string {
	switch {
	case k < 2:
		return "levee"
	case k < 4:
		return "tallage"
	default:
		return "epiaison"
	}
}
