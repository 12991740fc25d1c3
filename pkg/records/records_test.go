package records

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2023, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestYieldRecord_Rendement(t *testing.T) {
	tests := []struct {
		name     string
		record   YieldRecord
		expected float64
		ok       bool
	}{
		{
			name:     "final takes precedence",
			record:   YieldRecord{RendementEstime: Float(6.2), RendementFinal: Float(7.1)},
			expected: 7.1,
			ok:       true,
		},
		{
			name:     "estimate when final absent",
			record:   YieldRecord{RendementEstime: Float(6.2)},
			expected: 6.2,
			ok:       true,
		},
		{
			name:     "NaN final falls back to estimate",
			record:   YieldRecord{RendementEstime: Float(6.2), RendementFinal: Float(nan())},
			expected: 6.2,
			ok:       true,
		},
		{
			name:   "neither present",
			record: YieldRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tt.record.Rendement()
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, v, 1e-12)
		})
	}
}

func TestDataset_Validate(t *testing.T) {
	tests := []struct {
		name    string
		dataset Dataset
		wantErr bool
	}{
		{
			name: "valid",
			dataset: Dataset{
				Monitoring: []MonitoringObservation{{ParcelID: "P001", Date: day(1), NDVI: Float(0.6),
					Measures: map[string]float64{"temperature_sol": 12}}},
				Weather: []WeatherRecord{{Date: day(1), Measures: map[string]float64{"precipitation": 3},
					Labels: map[string]string{"vent": "nord"}}},
				Soil:  []SoilRecord{{ParcelID: "P001", CapaciteRetentionEau: Float(0.4)}},
				Yield: []YieldRecord{{ParcelID: "P001", Date: day(1), RendementFinal: Float(7)}},
			},
		},
		{
			name:    "empty parcel id",
			dataset: Dataset{Monitoring: []MonitoringObservation{{Date: day(1)}}},
			wantErr: true,
		},
		{
			name:    "zero weather date",
			dataset: Dataset{Weather: []WeatherRecord{{}}},
			wantErr: true,
		},
		{
			name:    "infinite ndvi",
			dataset: Dataset{Monitoring: []MonitoringObservation{{ParcelID: "P001", Date: day(1), NDVI: Float(inf())}}},
			wantErr: true,
		},
		{
			name: "measure shadows fixed column",
			dataset: Dataset{Weather: []WeatherRecord{{Date: day(1),
				Measures: map[string]float64{ColRendement: 3}}}},
			wantErr: true,
		},
		{
			name: "name shared by two sources",
			dataset: Dataset{
				Weather: []WeatherRecord{{Date: day(1), Measures: map[string]float64{"ph": 3}}},
				Soil:    []SoilRecord{{ParcelID: "P001", Measures: map[string]float64{"ph": 6.5}}},
			},
			wantErr: true,
		},
		{
			name: "name used with two roles",
			dataset: Dataset{Monitoring: []MonitoringObservation{
				{ParcelID: "P001", Date: day(1), Measures: map[string]float64{"stade": 3}},
				{ParcelID: "P001", Date: day(2), Labels: map[string]string{"stade": "floraison"}},
			}},
			wantErr: true,
		},
		{
			name: "yield without date",
			dataset: Dataset{Yield: []YieldRecord{{ParcelID: "P001"}}},
			wantErr: true,
		},
		{
			name: "duplicates are allowed",
			dataset: Dataset{Yield: []YieldRecord{
				{ParcelID: "P001", Date: day(1), RendementFinal: Float(7)},
				{ParcelID: "P001", Date: day(1), RendementFinal: Float(8)},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dataset.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, analysis.ErrDataIntegrity))

			var aerr *analysis.Error
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, analysis.StageValidation, aerr.Stage)
		})
	}
}

func TestDataset_Disambiguate(t *testing.T) {
	d := &Dataset{
		Monitoring: []MonitoringObservation{{ParcelID: "P001", Date: day(1),
			Measures: map[string]float64{"humidite": 40, "temperature_sol": 12}}},
		Weather: []WeatherRecord{{Date: day(1),
			Measures: map[string]float64{ColLatitude: 44.1, "humidite": 70},
			Labels:   map[string]string{"station": "nord"}}},
		Soil:  []SoilRecord{{ParcelID: "P001", Labels: map[string]string{"station": "sud"}}},
		Yield: []YieldRecord{{ParcelID: "P001", Date: day(1), RendementFinal: Float(7)}},
	}

	require.Error(t, d.Validate())

	out := d.Disambiguate()
	require.NoError(t, out.Validate())

	assert.Equal(t, map[string]float64{"humidite_monitoring": 40, "temperature_sol": 12}, out.Monitoring[0].Measures)
	assert.Equal(t, map[string]float64{"latitude_weather": 44.1, "humidite_weather": 70}, out.Weather[0].Measures)
	assert.Equal(t, map[string]string{"station_weather": "nord"}, out.Weather[0].Labels)
	assert.Equal(t, map[string]string{"station_soil": "sud"}, out.Soil[0].Labels)
	assert.Equal(t, d.Yield, out.Yield)

	assert.Contains(t, d.Weather[0].Measures, ColLatitude)
	assert.Contains(t, d.Monitoring[0].Measures, "humidite")
}

func TestDataset_ValidateReportsFirstColumnInOrder(t *testing.T) {
	d := &Dataset{Weather: []WeatherRecord{{Date: day(1),
		Measures: map[string]float64{"zeta": inf(), "alpha": inf(), "mu": inf()}}}}

	for range 10 {
		var aerr *analysis.Error
		require.ErrorAs(t, d.Validate(), &aerr)
		assert.Contains(t, aerr.Detail, "infinite alpha")
	}
}

func TestDataset_Normalize(t *testing.T) {
	d := &Dataset{
		Monitoring: []MonitoringObservation{
			{ParcelID: "P002", Date: day(1), NDVI: Float(0.5)},
			{ParcelID: "P001", Date: day(2), NDVI: Float(0.4), LAI: Float(2)},
			{ParcelID: "P001", Date: day(2), NDVI: Float(0.7), Labels: map[string]string{"culture": "ble"}},
		},
		Weather: []WeatherRecord{
			{Date: day(3), Measures: map[string]float64{"precipitation": 1, "temperature": 20}},
			{Date: day(3), Measures: map[string]float64{"precipitation": 4, "temperature": nan()}},
			{Date: day(1), Measures: map[string]float64{"precipitation": 0}},
		},
		Soil: []SoilRecord{
			{ParcelID: "P001", CapaciteRetentionEau: Float(0.3)},
			{ParcelID: "P001"},
		},
		Yield: []YieldRecord{
			{ParcelID: "P001", Date: day(5), RendementEstime: Float(6)},
			{ParcelID: "P001", Date: day(5), RendementFinal: Float(7)},
		},
	}

	n := d.Normalize()

	require.Len(t, n.Monitoring, 2)
	assert.Equal(t, "P001", n.Monitoring[0].ParcelID)
	assert.InDelta(t, 0.7, *n.Monitoring[0].NDVI, 1e-12)
	assert.InDelta(t, 2.0, *n.Monitoring[0].LAI, 1e-12)
	assert.Equal(t, "ble", n.Monitoring[0].Labels["culture"])

	require.Len(t, n.Weather, 2)
	assert.Equal(t, day(1), n.Weather[0].Date)
	assert.InDelta(t, 4.0, n.Weather[1].Measures["precipitation"], 1e-12)
	assert.InDelta(t, 20.0, n.Weather[1].Measures["temperature"], 1e-12)

	require.Len(t, n.Soil, 1)
	require.NotNil(t, n.Soil[0].CapaciteRetentionEau)
	assert.InDelta(t, 0.3, *n.Soil[0].CapaciteRetentionEau, 1e-12)

	require.Len(t, n.Yield, 1)
	r, ok := n.Yield[0].Rendement()
	require.True(t, ok)
	assert.InDelta(t, 7.0, r, 1e-12)

	// the input is left untouched
	assert.Len(t, d.Monitoring, 3)
	assert.InDelta(t, 0.4, *d.Monitoring[1].NDVI, 1e-12)
	assert.InDelta(t, 20.0, d.Weather[0].Measures["temperature"], 1e-12)
}

func TestDataset_Schema(t *testing.T) {
	d := &Dataset{
		Monitoring: []MonitoringObservation{{ParcelID: "P001", Date: day(1),
			Measures: map[string]float64{"temperature_sol": 1}, Labels: map[string]string{"culture": "ble"}}},
		Weather: []WeatherRecord{{Date: day(1), Measures: map[string]float64{"temperature": 1, "precipitation": 2}}},
		Soil:    []SoilRecord{{ParcelID: "P001", Labels: map[string]string{"texture": "limon"}}},
	}

	s := d.Schema()

	assert.Equal(t, []string{
		ColNDVI, ColLAI, ColStressHydrique, ColLatitude, ColLongitude,
		"temperature_sol", "precipitation", "temperature", ColCapaciteRetentionEau,
	}, s.Numeric())
	assert.Equal(t, []string{"culture", "texture"}, s.Categorical())

	c, ok := s.Lookup(ColRendement)
	require.True(t, ok)
	assert.Equal(t, RoleTarget, c.Role)
	assert.False(t, c.IsFeature())

	c, ok = s.Lookup("precipitation")
	require.True(t, ok)
	assert.Equal(t, SourceWeather, c.Source)
	assert.True(t, c.IsFeature())

	c, _ = s.Lookup(ColParcelID)
	assert.False(t, c.IsFeature())
}

func TestDataset_Parcels(t *testing.T) {
	d := &Dataset{
		Monitoring: []MonitoringObservation{{ParcelID: "P002"}, {ParcelID: "P001"}},
		Soil:       []SoilRecord{{ParcelID: "P009"}},
		Yield:      []YieldRecord{{ParcelID: "P003"}, {ParcelID: "P001"}},
	}

	assert.Equal(t, []string{"P001", "P002", "P003"}, d.Parcels())
}

func TestDataset_YieldHistory(t *testing.T) {
	d := &Dataset{Yield: []YieldRecord{
		{ParcelID: "P001", Date: day(9)},
		{ParcelID: "P002", Date: day(1)},
		{ParcelID: "P001", Date: day(2)},
	}}

	h := d.YieldHistory("P001")
	require.Len(t, h, 2)
	assert.Equal(t, day(2), h[0].Date)
	assert.Equal(t, day(9), h[1].Date)
	assert.Empty(t, d.YieldHistory("P404"))
}

func nan() float64 { return math.NaN() }

func inf() float64 { return math.Inf(1) }
