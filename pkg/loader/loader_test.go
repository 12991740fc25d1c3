package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethpandaops/parcelsight/internal/testutil"
	"github.com/ethpandaops/parcelsight/pkg/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const monitoringCSV = `parcelle_id,date,ndvi,lai,stress_hydrique,latitude,longitude,culture,temperature_sol
P001,2023-05-01,0.61,2.4,0.2,43.6,1.44,ble,12.5
P001,2023-05-15 08:30:00,NA,2.9,0.25,43.6,1.44,ble,
P002,2023-05-01T00:00:00Z,0.55,,0.3,43.7,1.45,mais,13
`

const weatherCSV = `date;temperature;precipitation;vent
2023-05-01;18.2;0;nord
2023-05-02;19.0;4.5;sud
`

const soilCSV = `parcelle_id,capacite_retention_eau,ph,texture
P001,0.32,6.8,limon
P002,,7.4,argile
`

const yieldCSV = `parcelle_id,date,annee,rendement_estime,rendement_final
P001,2022-09-15,2022,6.1,6.4
P001,2023-05-01,2023,5.8,
P002,2022-09-15,2022,,
`

func TestParseMonitoring(t *testing.T) {
	out, err := ParseMonitoring(strings.NewReader(monitoringCSV), ',')
	require.NoError(t, err)
	require.Len(t, out, 3)

	first := out[0]
	assert.Equal(t, "P001", first.ParcelID)
	assert.Equal(t, testutil.Day(2023, time.May, 1), first.Date)
	require.NotNil(t, first.NDVI)
	assert.InDelta(t, 0.61, *first.NDVI, 1e-12)
	assert.Equal(t, map[string]float64{"temperature_sol": 12.5}, first.Measures)
	assert.Equal(t, map[string]string{"culture": "ble"}, first.Labels)

	second := out[1]
	assert.Nil(t, second.NDVI)
	assert.Equal(t, time.Date(2023, time.May, 15, 8, 30, 0, 0, time.UTC), second.Date)
	assert.Empty(t, second.Measures)

	assert.Nil(t, out[2].LAI)
	assert.Equal(t, testutil.Day(2023, time.May, 1), out[2].Date.UTC())
}

func TestParseWeather(t *testing.T) {
	out, err := ParseWeather(strings.NewReader(weatherCSV), ';')
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, map[string]float64{"temperature": 19.0, "precipitation": 4.5}, out[1].Measures)
	assert.Equal(t, map[string]string{"vent": "sud"}, out[1].Labels)
}

func TestParseSoil(t *testing.T) {
	out, err := ParseSoil(strings.NewReader(soilCSV), ',')
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.NotNil(t, out[0].CapaciteRetentionEau)
	assert.InDelta(t, 0.32, *out[0].CapaciteRetentionEau, 1e-12)
	assert.Nil(t, out[1].CapaciteRetentionEau)
	assert.Equal(t, map[string]float64{"ph": 7.4}, out[1].Measures)
	assert.Equal(t, map[string]string{"texture": "argile"}, out[1].Labels)
}

func TestParseYield(t *testing.T) {
	out, err := ParseYield(strings.NewReader(yieldCSV), ',')
	require.NoError(t, err)
	require.Len(t, out, 3)

	v, ok := out[0].Rendement()
	require.True(t, ok)
	assert.InDelta(t, 6.4, v, 1e-12)

	v, ok = out[1].Rendement()
	require.True(t, ok)
	assert.InDelta(t, 5.8, v, 1e-12)

	_, ok = out[2].Rendement()
	assert.False(t, ok)
	assert.Equal(t, 2022, out[2].Annee())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		parse   func() error
		wantErr error
	}{
		{
			name: "missing parcel column",
			parse: func() error {
				_, err := ParseMonitoring(strings.NewReader("date,ndvi\n2023-05-01,0.5\n"), ',')
				return err
			},
			wantErr: ErrMissingColumn,
		},
		{
			name: "bad date",
			parse: func() error {
				_, err := ParseYield(strings.NewReader("parcelle_id,date\nP001,01/05/2023\n"), ',')
				return err
			},
			wantErr: ErrInvalidDate,
		},
		{
			name: "bad number in known column",
			parse: func() error {
				_, err := ParseSoil(strings.NewReader("parcelle_id,capacite_retention_eau\nP001,high\n"), ',')
				return err
			},
			wantErr: ErrInvalidNumber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.parse(), tt.wantErr)
		})
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	out, err := ParseWeather(strings.NewReader("date,temperature\n"), ',')
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = ParseWeather(strings.NewReader(""), ',')
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		return path
	}

	cfg := &Config{
		Monitoring: write("monitoring.csv", monitoringCSV),
		Weather:    write("weather.csv", strings.ReplaceAll(weatherCSV, ";", ",")),
		Soil:       write("soil.csv", soilCSV),
		Yield:      write("yield.csv", yieldCSV),
		Delimiter:  ",",
	}

	d, err := Load(testutil.Logger(), cfg)
	require.NoError(t, err)

	assert.Len(t, d.Monitoring, 3)
	assert.Len(t, d.Weather, 2)
	assert.Len(t, d.Soil, 2)
	assert.Len(t, d.Yield, 3)
	require.NoError(t, d.Validate())

	cfg.Soil = ""
	d, err = Load(testutil.Logger(), cfg)
	require.NoError(t, err)
	assert.Empty(t, d.Soil)

	cfg.Yield = filepath.Join(dir, "missing.csv")
	_, err = Load(testutil.Logger(), cfg)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "valid", config: Config{Monitoring: "m.csv", Yield: "y.csv", Delimiter: ","}},
		{name: "no monitoring", config: Config{Yield: "y.csv", Delimiter: ","}, wantErr: ErrMissingPath},
		{name: "no yield", config: Config{Monitoring: "m.csv", Delimiter: ","}, wantErr: ErrMissingPath},
		{name: "long delimiter", config: Config{Monitoring: "m.csv", Yield: "y.csv", Delimiter: ";;"},
			wantErr: ErrInvalidDelimiter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_DatasetSchema(t *testing.T) {
	out, err := ParseMonitoring(strings.NewReader(monitoringCSV), ',')
	require.NoError(t, err)

	d := &records.Dataset{Monitoring: out}
	assert.Equal(t, []string{"culture"}, d.Schema().Categorical())
}
