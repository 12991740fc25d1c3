package records

import (
	"math"
	"sort"
)

// Role tells callers how a column may be used.
type Role string

const (
	// RoleIdentifier marks key columns that must never be treated as features
	RoleIdentifier Role = "identifier"
	// RoleTarget marks the resolved yield column
	RoleTarget Role = "target"
	// RoleNumeric marks numeric feature columns
	RoleNumeric Role = "numeric"
	// RoleCategorical marks text feature columns; they need encoding before model fits
	RoleCategorical Role = "categorical"
)

// Source names the table a column comes from.
type Source string

const (
	SourceMonitoring Source = "monitoring"
	SourceWeather    Source = "weather"
	SourceSoil       Source = "soil"
	SourceYield      Source = "yield"
)

// Column is one named, typed column of the fused schema.
type Column struct {
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Source Source `json:"source,omitempty"`
}

// IsFeature reports whether the column may be fed to a model.
func (c Column) IsFeature() bool {
	return c.Role == RoleNumeric || c.Role == RoleCategorical
}

// Schema is the ordered column list of a dataset.
type Schema struct {
	Columns []Column `json:"columns"`
}

// Numeric returns the numeric feature column names in schema order.
func (s Schema) Numeric() []string {
	return s.names(RoleNumeric)
}

// Categorical returns the categorical feature column names in schema order.
func (s Schema) Categorical() []string {
	return s.names(RoleCategorical)
}

// Lookup returns the column with the given name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}

	return Column{}, false
}

func (s Schema) names(role Role) []string {
	out := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Role == role {
			out = append(out, c.Name)
		}
	}

	return out
}

// reserved holds the names measures and labels may not take.
//
//nolint:gochecknoglobals // read-only lookup table
var reserved = map[string]Role{
	ColParcelID:             RoleIdentifier,
	ColDate:                 RoleIdentifier,
	ColAnnee:                RoleNumeric,
	ColRendement:            RoleTarget,
	ColRendementEstime:      RoleNumeric,
	ColRendementFinal:       RoleNumeric,
	ColRendementMoyen:       RoleNumeric,
	ColNDVI:                 RoleNumeric,
	ColLAI:                  RoleNumeric,
	ColStressHydrique:       RoleNumeric,
	ColLatitude:             RoleNumeric,
	ColLongitude:            RoleNumeric,
	ColCapaciteRetentionEau: RoleNumeric,
}

// IsReserved reports whether name is one of the fixed schema columns.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// Schema derives the column schema of the dataset: identifiers and target first, then the
// feature columns grouped by source (monitoring, weather, soil), fixed columns before extra
// measures, extra names sorted.
func (d *Dataset) Schema() Schema {
	cols := []Column{
		{Name: ColParcelID, Role: RoleIdentifier},
		{Name: ColDate, Role: RoleIdentifier},
		{Name: ColRendement, Role: RoleTarget, Source: SourceYield},
		{Name: ColNDVI, Role: RoleNumeric, Source: SourceMonitoring},
		{Name: ColLAI, Role: RoleNumeric, Source: SourceMonitoring},
		{Name: ColStressHydrique, Role: RoleNumeric, Source: SourceMonitoring},
		{Name: ColLatitude, Role: RoleNumeric, Source: SourceMonitoring},
		{Name: ColLongitude, Role: RoleNumeric, Source: SourceMonitoring},
	}

	var monMeasures, monLabels, wMeasures, wLabels, soilMeasures, soilLabels keySet

	for i := range d.Monitoring {
		monMeasures.addFloats(d.Monitoring[i].Measures)
		monLabels.addStrings(d.Monitoring[i].Labels)
	}

	for i := range d.Weather {
		wMeasures.addFloats(d.Weather[i].Measures)
		wLabels.addStrings(d.Weather[i].Labels)
	}

	for i := range d.Soil {
		soilMeasures.addFloats(d.Soil[i].Measures)
		soilLabels.addStrings(d.Soil[i].Labels)
	}

	cols = appendColumns(cols, monMeasures.sorted(), RoleNumeric, SourceMonitoring)
	cols = appendColumns(cols, wMeasures.sorted(), RoleNumeric, SourceWeather)
	cols = append(cols, Column{Name: ColCapaciteRetentionEau, Role: RoleNumeric, Source: SourceSoil})
	cols = appendColumns(cols, soilMeasures.sorted(), RoleNumeric, SourceSoil)
	cols = appendColumns(cols, monLabels.sorted(), RoleCategorical, SourceMonitoring)
	cols = appendColumns(cols, wLabels.sorted(), RoleCategorical, SourceWeather)
	cols = appendColumns(cols, soilLabels.sorted(), RoleCategorical, SourceSoil)

	return Schema{Columns: cols}
}

func appendColumns(cols []Column, names []string, role Role, source Source) []Column {
	for _, n := range names {
		cols = append(cols, Column{Name: n, Role: role, Source: source})
	}

	return cols
}

type keySet map[string]struct{}

func (k *keySet) addFloats(m map[string]float64) {
	for name := range m {
		k.add(name)
	}
}

func (k *keySet) addStrings(m map[string]string) {
	for name := range m {
		k.add(name)
	}
}

func (k *keySet) add(name string) {
	if *k == nil {
		*k = make(keySet)
	}
	(*k)[name] = struct{}{}
}

func (k keySet) sorted() []string {
	out := make([]string, 0, len(k))
	for name := range k {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}

func isMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
