package records

import (
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
)

type columnOwner struct {
	source Source
	role   Role
}

// Validate checks the dataset against the column schema. It rejects empty parcel ids, zero
// dates, infinite values, measure or label names that shadow a fixed column, and names
// shared by two source tables or used with two roles. Disambiguate renames such clashes
// beforehand. Duplicate keys are not errors; see Normalize.
func (d *Dataset) Validate() error {
	owners := make(map[string]columnOwner)

	claim := func(name string, source Source, role Role) error {
		if IsReserved(name) {
			return analysis.NewError(analysis.ErrDataIntegrity, analysis.StageValidation, "",
				"%s column %q shadows a fixed column", source, name)
		}

		if name == "" {
			return analysis.NewError(analysis.ErrDataIntegrity, analysis.StageValidation, "",
				"%s column with empty name", source)
		}

		prev, ok := owners[name]
		if !ok {
			owners[name] = columnOwner{source: source, role: role}
			return nil
		}

		if prev.source != source || prev.role != role {
			return analysis.NewError(analysis.ErrDataIntegrity, analysis.StageValidation, "",
				"column %q used as %s %s and %s %s", name, prev.source, prev.role, source, role)
		}

		return nil
	}

	for i := range d.Monitoring {
		m := &d.Monitoring[i]
		if m.ParcelID == "" {
			return rowError(SourceMonitoring, i, "", "empty %s", ColParcelID)
		}

		if m.Date.IsZero() {
			return rowError(SourceMonitoring, i, m.ParcelID, "zero %s", ColDate)
		}

		for name, p := range map[string]*float64{
			ColNDVI: m.NDVI, ColLAI: m.LAI, ColStressHydrique: m.StressHydrique,
			ColLatitude: m.Latitude, ColLongitude: m.Longitude,
		} {
			if p != nil && math.IsInf(*p, 0) {
				return rowError(SourceMonitoring, i, m.ParcelID, "infinite %s", name)
			}
		}

		if err := checkColumns(m.Measures, m.Labels, SourceMonitoring, i, m.ParcelID, claim); err != nil {
			return err
		}
	}

	for i := range d.Weather {
		w := &d.Weather[i]
		if w.Date.IsZero() {
			return rowError(SourceWeather, i, "", "zero %s", ColDate)
		}

		if err := checkColumns(w.Measures, w.Labels, SourceWeather, i, "", claim); err != nil {
			return err
		}
	}

	for i := range d.Soil {
		s := &d.Soil[i]
		if s.ParcelID == "" {
			return rowError(SourceSoil, i, "", "empty %s", ColParcelID)
		}

		if s.CapaciteRetentionEau != nil && math.IsInf(*s.CapaciteRetentionEau, 0) {
			return rowError(SourceSoil, i, s.ParcelID, "infinite %s", ColCapaciteRetentionEau)
		}

		if err := checkColumns(s.Measures, s.Labels, SourceSoil, i, s.ParcelID, claim); err != nil {
			return err
		}
	}

	for i := range d.Yield {
		y := &d.Yield[i]
		if y.ParcelID == "" {
			return rowError(SourceYield, i, "", "empty %s", ColParcelID)
		}

		if y.Date.IsZero() {
			return rowError(SourceYield, i, y.ParcelID, "zero %s", ColDate)
		}

		for name, p := range map[string]*float64{
			ColRendementEstime: y.RendementEstime, ColRendementFinal: y.RendementFinal,
		} {
			if p != nil && math.IsInf(*p, 0) {
				return rowError(SourceYield, i, y.ParcelID, "infinite %s", name)
			}
		}
	}

	return nil
}

func checkColumns(
	measures map[string]float64,
	labels map[string]string,
	source Source,
	row int,
	parcelID string,
	claim func(string, Source, Role) error,
) error {
	for _, name := range slices.Sorted(maps.Keys(measures)) {
		if math.IsInf(measures[name], 0) {
			return rowError(source, row, parcelID, "infinite %s", name)
		}

		if err := claim(name, source, RoleNumeric); err != nil {
			return err
		}
	}

	for _, name := range slices.Sorted(maps.Keys(labels)) {
		if err := claim(name, source, RoleCategorical); err != nil {
			return err
		}
	}

	return nil
}

func rowError(source Source, row int, parcelID, format string, args ...any) error {
	err := analysis.NewError(analysis.ErrDataIntegrity, analysis.StageValidation, parcelID, format, args...)
	err.Detail = string(source) + " row " + strconv.Itoa(row) + ": " + err.Detail

	return err
}
