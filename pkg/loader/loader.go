// Package loader reads the monitoring, weather, soil and yield tables from CSV files.
package loader

import (
	"fmt"
	"io"
	"os"

	"github.com/ethpandaops/parcelsight/pkg/records"
	"github.com/sirupsen/logrus"
)

// Load reads the configured CSV tables into a dataset. Missing optional tables leave the
// corresponding slice empty.
func Load(log logrus.FieldLogger, cfg *Config) (*records.Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = log.WithField("component", "loader")
	d := &records.Dataset{}

	var err error
	if d.Monitoring, err = loadFile(cfg.Monitoring, cfg, ParseMonitoring); err != nil {
		return nil, err
	}

	if cfg.Weather != "" {
		if d.Weather, err = loadFile(cfg.Weather, cfg, ParseWeather); err != nil {
			return nil, err
		}
	}

	if cfg.Soil != "" {
		if d.Soil, err = loadFile(cfg.Soil, cfg, ParseSoil); err != nil {
			return nil, err
		}
	}

	if d.Yield, err = loadFile(cfg.Yield, cfg, ParseYield); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"monitoring": len(d.Monitoring),
		"weather":    len(d.Weather),
		"soil":       len(d.Soil),
		"yield":      len(d.Yield),
	}).Info("Loaded source tables")

	return d, nil
}

func loadFile[T any](path string, cfg *Config, parse func(io.Reader, rune) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	out, err := parse(f, cfg.comma())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return out, nil
}

// ParseMonitoring parses a monitoring table. parcelle_id and date are required; ndvi, lai,
// stress_hydrique, latitude and longitude map to typed fields; other columns become
// measures or labels.
func ParseMonitoring(r io.Reader, comma rune) ([]records.MonitoringObservation, error) {
	t, err := readTable("monitoring", r, comma)
	if err != nil {
		return nil, err
	}

	if len(t.rows) == 0 {
		return nil, nil
	}

	if err := t.require(records.ColParcelID, records.ColDate); err != nil {
		return nil, err
	}

	fixed := []string{
		records.ColNDVI, records.ColLAI, records.ColStressHydrique, records.ColLatitude, records.ColLongitude,
	}
	numeric, categorical := t.extras(append([]string{records.ColParcelID, records.ColDate}, fixed...)...)

	out := make([]records.MonitoringObservation, 0, len(t.rows))
	for i := range t.rows {
		date, err := t.date(i, records.ColDate)
		if err != nil {
			return nil, err
		}

		values := make([]*float64, len(fixed))
		for k, c := range fixed {
			if values[k], err = t.number(i, c); err != nil {
				return nil, err
			}
		}

		out = append(out, records.MonitoringObservation{
			ParcelID:       t.cell(i, records.ColParcelID),
			Date:           date,
			NDVI:           values[0],
			LAI:            values[1],
			StressHydrique: values[2],
			Latitude:       values[3],
			Longitude:      values[4],
			Measures:       t.measures(i, numeric),
			Labels:         t.labels(i, categorical),
		})
	}

	return out, nil
}

// ParseWeather parses a weather table keyed by date.
func ParseWeather(r io.Reader, comma rune) ([]records.WeatherRecord, error) {
	t, err := readTable("weather", r, comma)
	if err != nil {
		return nil, err
	}

	if len(t.rows) == 0 {
		return nil, nil
	}

	if err := t.require(records.ColDate); err != nil {
		return nil, err
	}

	numeric, categorical := t.extras(records.ColDate)

	out := make([]records.WeatherRecord, 0, len(t.rows))
	for i := range t.rows {
		date, err := t.date(i, records.ColDate)
		if err != nil {
			return nil, err
		}

		out = append(out, records.WeatherRecord{
			Date:     date,
			Measures: t.measures(i, numeric),
			Labels:   t.labels(i, categorical),
		})
	}

	return out, nil
}

// ParseSoil parses a soil table keyed by parcelle_id.
func ParseSoil(r io.Reader, comma rune) ([]records.SoilRecord, error) {
	t, err := readTable("soil", r, comma)
	if err != nil {
		return nil, err
	}

	if len(t.rows) == 0 {
		return nil, nil
	}

	if err := t.require(records.ColParcelID); err != nil {
		return nil, err
	}

	numeric, categorical := t.extras(records.ColParcelID, records.ColCapaciteRetentionEau)

	out := make([]records.SoilRecord, 0, len(t.rows))
	for i := range t.rows {
		capacity, err := t.number(i, records.ColCapaciteRetentionEau)
		if err != nil {
			return nil, err
		}

		out = append(out, records.SoilRecord{
			ParcelID:             t.cell(i, records.ColParcelID),
			CapaciteRetentionEau: capacity,
			Measures:             t.measures(i, numeric),
			Labels:               t.labels(i, categorical),
		})
	}

	return out, nil
}

// ParseYield parses a yield table. annee and rendement columns, when present, are ignored:
// both are derived from date and the two yield columns.
func ParseYield(r io.Reader, comma rune) ([]records.YieldRecord, error) {
	t, err := readTable("yield", r, comma)
	if err != nil {
		return nil, err
	}

	if len(t.rows) == 0 {
		return nil, nil
	}

	if err := t.require(records.ColParcelID, records.ColDate); err != nil {
		return nil, err
	}

	out := make([]records.YieldRecord, 0, len(t.rows))
	for i := range t.rows {
		date, err := t.date(i, records.ColDate)
		if err != nil {
			return nil, err
		}

		estimate, err := t.number(i, records.ColRendementEstime)
		if err != nil {
			return nil, err
		}

		final, err := t.number(i, records.ColRendementFinal)
		if err != nil {
			return nil, err
		}

		out = append(out, records.YieldRecord{
			ParcelID:        t.cell(i, records.ColParcelID),
			Date:            date,
			RendementEstime: estimate,
			RendementFinal:  final,
		})
	}

	return out, nil
}
