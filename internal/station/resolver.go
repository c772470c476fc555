package station

import (
	"fmt"
	"math"
	"sort"

	"github.com/xyloclime/snowline/internal/geo"
)

// Resolved is a station paired with its distance from a query coordinate.
// It is a query-time value and is never persisted.
type Resolved struct {
	Record
	Distance float64  `json:"distance"`
	Unit     geo.Unit `json:"-"`
}

// Resolver answers nearest-station queries against an Index. All queries are
// linear scans over the candidate list; at tens of thousands of stations this
// is well under a millisecond and keeps the ordering contract trivial.
type Resolver struct {
	index *Index
	unit  geo.Unit
}

// NewResolver creates a resolver that reports distances in the given unit.
func NewResolver(index *Index, unit geo.Unit) *Resolver {
	return &Resolver{index: index, unit: unit}
}

// Unit returns the distance unit this resolver reports in.
func (r *Resolver) Unit() geo.Unit {
	return r.unit
}

// roundDistance keeps reported distances at a tenth of a unit so that equal
// distances tie deterministically and fixtures reproduce.
func roundDistance(d float64) float64 {
	return math.Round(d*10) / 10
}

// resolveAll computes distances for every candidate and sorts ascending by
// distance, ties broken by lexicographic station ID.
func (r *Resolver) resolveAll(lat, lng float64, qualityOnly bool) ([]Resolved, error) {
	if err := geo.ValidateCoordinate(lat, lng); err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	candidates := r.index.All()
	if qualityOnly {
		candidates = r.index.Quality()
	}

	resolved := make([]Resolved, 0, len(candidates))
	for _, s := range candidates {
		d := geo.Distance(lat, lng, s.Latitude, s.Longitude, r.unit)
		resolved = append(resolved, Resolved{
			Record:   s,
			Distance: roundDistance(d),
			Unit:     r.unit,
		})
	}

	sort.Slice(resolved, func(a, b int) bool {
		if resolved[a].Distance != resolved[b].Distance {
			return resolved[a].Distance < resolved[b].Distance
		}
		return resolved[a].ID < resolved[b].ID
	})

	return resolved, nil
}

// FindNearest returns the count nearest stations to a coordinate, ascending
// by distance. When fewer stations exist than requested, all of them are
// returned rather than an error.
func (r *Resolver) FindNearest(lat, lng float64, count int, qualityOnly bool) ([]Resolved, error) {
	if count < 1 {
		return nil, fmt.Errorf("station count must be >= 1, got %d", count)
	}

	resolved, err := r.resolveAll(lat, lng, qualityOnly)
	if err != nil {
		return nil, err
	}

	if count > len(resolved) {
		count = len(resolved)
	}
	return resolved[:count], nil
}

// FindBest returns the single nearest quality station, or nil when the
// station set is empty.
func (r *Resolver) FindBest(lat, lng float64) (*Resolved, error) {
	nearest, err := r.FindNearest(lat, lng, 1, true)
	if err != nil {
		return nil, err
	}
	if len(nearest) == 0 {
		return nil, nil
	}
	return &nearest[0], nil
}

// FindWithinRadius returns all quality stations within maxDistance of the
// coordinate, ascending by distance. An empty slice means no coverage, which
// is an ordinary result rather than an error.
func (r *Resolver) FindWithinRadius(lat, lng, maxDistance float64) ([]Resolved, error) {
	if maxDistance < 0 {
		return nil, fmt.Errorf("search radius must be non-negative, got %v", maxDistance)
	}

	resolved, err := r.resolveAll(lat, lng, true)
	if err != nil {
		return nil, err
	}

	// resolved is ascending, so stations past the ceiling form a suffix
	n := sort.Search(len(resolved), func(i int) bool {
		return resolved[i].Distance > maxDistance
	})
	return resolved[:n], nil
}

// CoverageReport summarizes quality-station coverage around a coordinate.
type CoverageReport struct {
	Latitude        float64    `json:"lat"`
	Longitude       float64    `json:"lng"`
	Radius          float64    `json:"radius"`
	Unit            string     `json:"unit"`
	StationsFound   int        `json:"stations_found"`
	NearestDistance *float64   `json:"nearest_station_distance,omitempty"`
	Stations        []Resolved `json:"stations"`
}

// Coverage reports how many quality stations serve an area, with the ten
// nearest listed.
func (r *Resolver) Coverage(lat, lng, radius float64) (*CoverageReport, error) {
	within, err := r.FindWithinRadius(lat, lng, radius)
	if err != nil {
		return nil, err
	}

	report := &CoverageReport{
		Latitude:      lat,
		Longitude:     lng,
		Radius:        radius,
		Unit:          r.unit.String(),
		StationsFound: len(within),
	}
	if len(within) > 0 {
		report.NearestDistance = &within[0].Distance
	}
	if len(within) > 10 {
		within = within[:10]
	}
	report.Stations = within
	return report, nil
}
