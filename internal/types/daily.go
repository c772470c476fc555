// Package types contains data types shared between the resolver, providers,
// and the summary calculators.
package types

import (
	"strconv"
	"strings"
	"time"
)

// Observation type codes as used by the daily-summaries dataset.
const (
	TypeTempMax   = "TMAX"
	TypeTempMin   = "TMIN"
	TypePrecip    = "PRCP"
	TypeSnow      = "SNOW"
	TypeSnowDepth = "SNWD"
)

// AllDataTypes is the default set requested from providers when the caller
// does not name specific types.
var AllDataTypes = []string{TypeTempMax, TypeTempMin, TypePrecip, TypeSnow, TypeSnowDepth}

// DailyRecord is a single day of observations for one station or grid point.
// A nil field means the observation is absent for that day; absence is never
// the same as a zero value and must stay nil through every aggregation step.
type DailyRecord struct {
	Date      time.Time `json:"date" msgpack:"date"`
	TempMax   *float64  `json:"tmax,omitempty" msgpack:"tmax,omitempty"`
	TempMin   *float64  `json:"tmin,omitempty" msgpack:"tmin,omitempty"`
	Precip    *float64  `json:"prcp,omitempty" msgpack:"prcp,omitempty"`
	Snow      *float64  `json:"snow,omitempty" msgpack:"snow,omitempty"`
	SnowDepth *float64  `json:"snwd,omitempty" msgpack:"snwd,omitempty"`
}

// Value returns the observation for a type code, or nil when absent.
func (r *DailyRecord) Value(code string) *float64 {
	switch code {
	case TypeTempMax:
		return r.TempMax
	case TypeTempMin:
		return r.TempMin
	case TypePrecip:
		return r.Precip
	case TypeSnow:
		return r.Snow
	case TypeSnowDepth:
		return r.SnowDepth
	}
	return nil
}

// SetValue stores an observation under a type code. Unknown codes are ignored.
func (r *DailyRecord) SetValue(code string, v *float64) {
	switch code {
	case TypeTempMax:
		r.TempMax = v
	case TypeTempMin:
		r.TempMin = v
	case TypePrecip:
		r.Precip = v
	case TypeSnow:
		r.Snow = v
	case TypeSnowDepth:
		r.SnowDepth = v
	}
}

// ParseField converts a provider's raw numeric field into an observation.
// Empty and malformed values come back nil: a single bad field is treated as
// missing rather than failing the whole record.
func ParseField(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Float64Ptr is a convenience for building records in tests and providers.
func Float64Ptr(v float64) *float64 {
	return &v
}
