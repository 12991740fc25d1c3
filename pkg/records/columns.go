package records

import "maps"

// Disambiguate returns a copy of the dataset where extra measure and label names that would
// clash in the fused row carry their source as a suffix. A name clashes when it is one of
// the fixed columns or when more than one source table uses it: a weather "latitude" becomes
// "latitude_weather", and a "ph" measured in both weather and soil becomes "ph_weather" and
// "ph_soil". Names used by a single table are left alone. The receiver is not modified.
func (d *Dataset) Disambiguate() *Dataset {
	users := make(map[string]map[Source]struct{})

	note := func(source Source, names keySet) {
		for name := range names {
			if users[name] == nil {
				users[name] = make(map[Source]struct{})
			}
			users[name][source] = struct{}{}
		}
	}

	var monNames, wNames, soilNames keySet

	for i := range d.Monitoring {
		monNames.addFloats(d.Monitoring[i].Measures)
		monNames.addStrings(d.Monitoring[i].Labels)
	}

	for i := range d.Weather {
		wNames.addFloats(d.Weather[i].Measures)
		wNames.addStrings(d.Weather[i].Labels)
	}

	for i := range d.Soil {
		soilNames.addFloats(d.Soil[i].Measures)
		soilNames.addStrings(d.Soil[i].Labels)
	}

	note(SourceMonitoring, monNames)
	note(SourceWeather, wNames)
	note(SourceSoil, soilNames)

	renames := make(map[Source]map[string]string)
	for name, sources := range users {
		if len(sources) < 2 && !IsReserved(name) {
			continue
		}

		for source := range sources {
			if renames[source] == nil {
				renames[source] = make(map[string]string)
			}
			renames[source][name] = name + "_" + string(source)
		}
	}

	out := &Dataset{
		Monitoring: make([]MonitoringObservation, len(d.Monitoring)),
		Weather:    make([]WeatherRecord, len(d.Weather)),
		Soil:       make([]SoilRecord, len(d.Soil)),
		Yield:      d.Yield,
	}

	for i, m := range d.Monitoring {
		m.Measures = renameKeys(m.Measures, renames[SourceMonitoring])
		m.Labels = renameKeys(m.Labels, renames[SourceMonitoring])
		out.Monitoring[i] = m
	}

	for i, w := range d.Weather {
		w.Measures = renameKeys(w.Measures, renames[SourceWeather])
		w.Labels = renameKeys(w.Labels, renames[SourceWeather])
		out.Weather[i] = w
	}

	for i, s := range d.Soil {
		s.Measures = renameKeys(s.Measures, renames[SourceSoil])
		s.Labels = renameKeys(s.Labels, renames[SourceSoil])
		out.Soil[i] = s
	}

	return out
}

func renameKeys[V any](in map[string]V, renames map[string]string) map[string]V {
	if in == nil || len(renames) == 0 {
		return maps.Clone(in)
	}

	out := make(map[string]V, len(in))
	for name, v := range in {
		if to, ok := renames[name]; ok {
			name = to
		}
		out[name] = v
	}

	return out
}
