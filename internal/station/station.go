// Package station provides the in-memory station index and the geographic
// resolver that matches coordinates to observation stations.
package station

import (
	"github.com/xyloclime/snowline/internal/types"
)

// Default recency thresholds. A data type counts as a current capability when
// its coverage runs through CapabilityCutoffYear or later; a station counts as
// quality when it additionally reports anything through QualityRecencyYear.
const (
	CapabilityCutoffYear = 2020
	QualityRecencyYear   = 2024
)

// Coverage is the inclusive year range a station reports a data type for.
type Coverage struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Record describes one observation station. Records are immutable once
// loaded; capability flags are always derived from DataTypes and a recency
// cutoff, never stored, so the flags cannot drift from the underlying data.
type Record struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Latitude  float64             `json:"lat"`
	Longitude float64             `json:"lng"`
	Elevation float64             `json:"elevation"`
	Country   string              `json:"country,omitempty"`
	DataTypes map[string]Coverage `json:"data_types,omitempty"`
}

// CountryCode returns the explicit country field when present, falling back
// to the two-letter network prefix of the station ID.
func (r *Record) CountryCode() string {
	if r.Country != "" {
		return r.Country
	}
	if len(r.ID) >= 2 {
		return r.ID[:2]
	}
	return ""
}

// hasTypeThrough reports whether a data type's coverage extends through the
// given year or later. Absent DataTypes means no capability at all.
func (r *Record) hasTypeThrough(code string, year int) bool {
	cov, ok := r.DataTypes[code]
	return ok && cov.End >= year
}

// HasSnow reports snowfall capability at the given recency cutoff.
func (r *Record) HasSnow(cutoff int) bool {
	return r.hasTypeThrough(types.TypeSnow, cutoff)
}

// HasSnowDepth reports snow depth capability at the given recency cutoff.
func (r *Record) HasSnowDepth(cutoff int) bool {
	return r.hasTypeThrough(types.TypeSnowDepth, cutoff)
}

// HasTemp reports temperature capability (either max or min series) at the
// given recency cutoff.
func (r *Record) HasTemp(cutoff int) bool {
	return r.hasTypeThrough(types.TypeTempMax, cutoff) || r.hasTypeThrough(types.TypeTempMin, cutoff)
}

// HasPrecip reports precipitation capability at the given recency cutoff.
func (r *Record) HasPrecip(cutoff int) bool {
	return r.hasTypeThrough(types.TypePrecip, cutoff)
}

// IsQuality reports whether a station qualifies for primary-network use:
// full temperature, precipitation and snow capability, plus at least one
// data type still reporting at recencyYear or later.
func (r *Record) IsQuality(capabilityCutoff, recencyYear int) bool {
	if !r.HasTemp(capabilityCutoff) || !r.HasPrecip(capabilityCutoff) || !r.HasSnow(capabilityCutoff) {
		return false
	}
	for _, cov := range r.DataTypes {
		if cov.End >= recencyYear {
			return true
		}
	}
	return false
}
