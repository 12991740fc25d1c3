// Package records defines the agronomic source entities and their explicit column schema.
package records

import (
	"time"
)

// Column names shared by every stage
const (
	ColParcelID             = "parcelle_id"
	ColDate                 = "date"
	ColAnnee                = "annee"
	ColRendement            = "rendement"
	ColRendementEstime      = "rendement_estime"
	ColRendementFinal       = "rendement_final"
	ColRendementMoyen       = "rendement_moyen"
	ColNDVI                 = "ndvi"
	ColLAI                  = "lai"
	ColStressHydrique       = "stress_hydrique"
	ColLatitude             = "latitude"
	ColLongitude            = "longitude"
	ColCapaciteRetentionEau = "capacite_retention_eau"
)

// MonitoringObservation is one field-monitoring sample for a parcel on a date.
type MonitoringObservation struct {
	ParcelID       string             `json:"parcelle_id"`
	Date           time.Time          `json:"date"`
	NDVI           *float64           `json:"ndvi,omitempty"`
	LAI            *float64           `json:"lai,omitempty"`
	StressHydrique *float64           `json:"stress_hydrique,omitempty"`
	Latitude       *float64           `json:"latitude,omitempty"`
	Longitude      *float64           `json:"longitude,omitempty"`
	Measures       map[string]float64 `json:"measures,omitempty"` // additional numeric sensor fields
	Labels         map[string]string  `json:"labels,omitempty"`   // categorical fields (crop, stage, ...)
}

// WeatherRecord is a site-wide weather record keyed only by date.
type WeatherRecord struct {
	Date     time.Time          `json:"date"`
	Measures map[string]float64 `json:"measures,omitempty"`
	Labels   map[string]string  `json:"labels,omitempty"`
}

// SoilRecord holds time-invariant soil properties of a parcel.
type SoilRecord struct {
	ParcelID             string             `json:"parcelle_id"`
	CapaciteRetentionEau *float64           `json:"capacite_retention_eau,omitempty"`
	Measures             map[string]float64 `json:"measures,omitempty"`
	Labels               map[string]string  `json:"labels,omitempty"`
}

// YieldRecord is a historical or current-season yield entry.
type YieldRecord struct {
	ParcelID        string    `json:"parcelle_id"`
	Date            time.Time `json:"date"`
	RendementEstime *float64  `json:"rendement_estime,omitempty"`
	RendementFinal  *float64  `json:"rendement_final,omitempty"`
}

// Annee returns the harvest year derived from the record date.
func (y YieldRecord) Annee() int {
	return y.Date.Year()
}

// Rendement resolves the yield value: the final measured yield takes precedence over the
// season estimate. The second return value is false when neither is present.
func (y YieldRecord) Rendement() (float64, bool) {
	if v, ok := value(y.RendementFinal); ok {
		return v, true
	}

	if v, ok := value(y.RendementEstime); ok {
		return v, true
	}

	return 0, false
}

// Dataset groups the four source tables handed over by a loader.
type Dataset struct {
	Monitoring []MonitoringObservation `json:"monitoring"`
	Weather    []WeatherRecord         `json:"weather"`
	Soil       []SoilRecord            `json:"soil"`
	Yield      []YieldRecord           `json:"yield"`
}

// Float returns a pointer to v, for building optional fields.
func Float(v float64) *float64 {
	return &v
}

func value(p *float64) (float64, bool) {
	if p == nil || isMissing(*p) {
		return 0, false
	}

	return *p, true
}
