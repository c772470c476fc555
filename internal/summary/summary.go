// Package summary reduces daily observation records into the statistics the
// API serves: per-period temperature, precipitation and snowfall summaries,
// season totals, storm rankings and depth-bucket breakdowns.
package summary

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/xyloclime/snowline/internal/types"
)

// DefaultStormCount is how many top snow events a snow report carries.
const DefaultStormCount = 10

// TemperatureStats summarizes the present TMAX/TMIN values of a period.
// Nil means no data, which is distinct from zero.
type TemperatureStats struct {
	AvgHigh *float64 `json:"avg_high,omitempty"`
	AvgLow  *float64 `json:"avg_low,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Min     *float64 `json:"min,omitempty"`
}

// PrecipitationStats summarizes the present PRCP values of a period.
type PrecipitationStats struct {
	Total         *float64 `json:"total,omitempty"`
	AvgDaily      *float64 `json:"avg_daily,omitempty"`
	DaysWithPrecip int     `json:"days_with_precip"`
}

// SnowfallStats summarizes the present SNOW values of a period.
type SnowfallStats struct {
	Total        *float64 `json:"total,omitempty"`
	AvgDaily     *float64 `json:"avg_daily,omitempty"`
	DaysWithSnow int      `json:"days_with_snow"`
	MaxDaily     *float64 `json:"max_daily,omitempty"`
}

// Report is the generic per-period summary. It references the station and
// period it was computed for and owns none of the underlying records.
type Report struct {
	StationID     string             `json:"station_id,omitempty"`
	Period        string             `json:"period,omitempty"`
	DayCount      int                `json:"days_with_data"`
	Temperature   TemperatureStats   `json:"temperature"`
	Precipitation PrecipitationStats `json:"precipitation"`
	Snowfall      SnowfallStats      `json:"snowfall"`
}

// Storm is one ranked snow event.
type Storm struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// DepthBreakdown buckets days with measurable snow by daily amount. The
// buckets are half-open on the lower end; a day with exactly zero snow falls
// into none of them.
type DepthBreakdown struct {
	Trace    int `json:"trace"`            // (0, 0.1)
	Light    int `json:"light"`            // [0.1, 2)
	Moderate int `json:"moderate"`         // [2, 6)
	Heavy    int `json:"heavy"`            // [6, 12)
	Extreme  int `json:"extreme"`          // [12, inf)
}

// SnowReport is the snow-specific summary for a season or arbitrary period.
type SnowReport struct {
	StationID     string         `json:"station_id,omitempty"`
	Season        string         `json:"season,omitempty"`
	TotalSnowfall *float64       `json:"total_snowfall,omitempty"`
	DaysWithSnow  int            `json:"days_with_snow"`
	AvgSnowDepth  *float64       `json:"avg_snow_depth,omitempty"`
	MaxSnowDepth  *float64       `json:"max_snow_depth,omitempty"`
	BiggestStorms []Storm        `json:"biggest_storms"`
	Breakdown     DepthBreakdown `json:"snow_days_breakdown"`
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func roundPtr(v float64, round func(float64) float64) *float64 {
	r := round(v)
	return &r
}

// present collects the non-missing values of one observation type.
func present(records []types.DailyRecord, code string) []float64 {
	vals := make([]float64, 0, len(records))
	for i := range records {
		if v := records[i].Value(code); v != nil {
			vals = append(vals, *v)
		}
	}
	return vals
}

func countPositive(vals []float64) int {
	n := 0
	for _, v := range vals {
		if v > 0 {
			n++
		}
	}
	return n
}

// Calculate produces the generic summary for a record sequence. An empty
// sequence yields a report with DayCount zero and every statistic absent;
// it is never an error.
func Calculate(records []types.DailyRecord) *Report {
	report := &Report{DayCount: len(records)}

	tmax := present(records, types.TypeTempMax)
	tmin := present(records, types.TypeTempMin)
	prcp := present(records, types.TypePrecip)
	snow := present(records, types.TypeSnow)

	if len(tmax) > 0 {
		report.Temperature.AvgHigh = roundPtr(stat.Mean(tmax, nil), round1)
		report.Temperature.Max = roundPtr(floats.Max(tmax), round1)
	}
	if len(tmin) > 0 {
		report.Temperature.AvgLow = roundPtr(stat.Mean(tmin, nil), round1)
		report.Temperature.Min = roundPtr(floats.Min(tmin), round1)
	}

	if len(prcp) > 0 {
		report.Precipitation.Total = roundPtr(floats.Sum(prcp), round2)
		report.Precipitation.AvgDaily = roundPtr(stat.Mean(prcp, nil), round2)
		report.Precipitation.DaysWithPrecip = countPositive(prcp)
	}

	if len(snow) > 0 {
		report.Snowfall.Total = roundPtr(floats.Sum(snow), round1)
		report.Snowfall.AvgDaily = roundPtr(stat.Mean(snow, nil), round2)
		report.Snowfall.DaysWithSnow = countPositive(snow)
		report.Snowfall.MaxDaily = roundPtr(floats.Max(snow), round1)
	}

	return report
}

// CalculateSnow produces the snow-specific summary: season total, storm
// ranking and depth breakdown. topN bounds the storm list; zero or negative
// means DefaultStormCount.
func CalculateSnow(records []types.DailyRecord, topN int) *SnowReport {
	if topN <= 0 {
		topN = DefaultStormCount
	}

	report := &SnowReport{BiggestStorms: []Storm{}}

	snow := present(records, types.TypeSnow)
	depth := present(records, types.TypeSnowDepth)

	if len(snow) > 0 {
		report.TotalSnowfall = roundPtr(floats.Sum(snow), round1)
		report.DaysWithSnow = countPositive(snow)
		report.Breakdown = bucketSnowDays(snow)
	}
	if len(depth) > 0 {
		report.AvgSnowDepth = roundPtr(stat.Mean(depth, nil), round1)
		report.MaxSnowDepth = roundPtr(floats.Max(depth), round1)
	}

	// Rank measurable snow events by amount, earliest date first on ties
	storms := make([]Storm, 0, len(records))
	for i := range records {
		if v := records[i].Snow; v != nil && *v > 0 {
			storms = append(storms, Storm{Date: records[i].Date, Amount: *v})
		}
	}
	sort.SliceStable(storms, func(a, b int) bool {
		if storms[a].Amount != storms[b].Amount {
			return storms[a].Amount > storms[b].Amount
		}
		return storms[a].Date.Before(storms[b].Date)
	})
	if len(storms) > topN {
		storms = storms[:topN]
	}
	report.BiggestStorms = storms

	return report
}

func bucketSnowDays(snow []float64) DepthBreakdown {
	var b DepthBreakdown
	for _, s := range snow {
		switch {
		case s <= 0:
			// zero is not a snow day and belongs to no bucket
		case s < 0.1:
			b.Trace++
		case s < 2:
			b.Light++
		case s < 6:
			b.Moderate++
		case s < 12:
			b.Heavy++
		default:
			b.Extreme++
		}
	}
	return b
}

// MonthRange returns the inclusive date range of a calendar month.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// YearRange returns the inclusive date range of a calendar year.
func YearRange(year int) (time.Time, time.Time) {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// SeasonRange returns the inclusive snow-season window for a starting year:
// November 1 of startYear through April 30 of the following year.
func SeasonRange(startYear int) (time.Time, time.Time) {
	return time.Date(startYear, time.November, 1, 0, 0, 0, 0, time.UTC),
		time.Date(startYear+1, time.April, 30, 0, 0, 0, 0, time.UTC)
}

// SeasonLabel formats a season as "2023-2024".
func SeasonLabel(startYear int) string {
	return fmt.Sprintf("%d-%d", startYear, startYear+1)
}

// FilterRange keeps the records whose date falls inside the inclusive
// [start, end] window.
func FilterRange(records []types.DailyRecord, start, end time.Time) []types.DailyRecord {
	out := make([]types.DailyRecord, 0, len(records))
	for i := range records {
		d := records[i].Date
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, records[i])
	}
	return out
}
