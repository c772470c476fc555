// Package tier implements the ordered data-source fallback: station network
// first, then the secondary provider, the modeled estimate, and finally the
// coarse reanalysis. The fallback policy lives here and nowhere else so every
// call site shares identical threshold behavior.
package tier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xyloclime/snowline/internal/geo"
	"github.com/xyloclime/snowline/internal/provider"
	"github.com/xyloclime/snowline/internal/station"
	"github.com/xyloclime/snowline/internal/types"
)

// Tier is a ranked data-source category, highest fidelity first.
type Tier int

const (
	TierStationNetwork Tier = iota + 1 // ground stations within the ceiling
	TierSecondary                      // near-global secondary provider
	TierModeled                        // gridded model estimate
	TierReanalysis                     // coarse reanalysis, last resort
)

func (t Tier) String() string {
	switch t {
	case TierStationNetwork:
		return "station-network"
	case TierSecondary:
		return "secondary-provider"
	case TierModeled:
		return "modeled-estimate"
	case TierReanalysis:
		return "coarse-reanalysis"
	}
	return fmt.Sprintf("tier-%d", int(t))
}

// DefaultCeilingKm is the primary-network distance ceiling in kilometers.
const DefaultCeilingKm = 200.0

// ErrAllTiersFailed is returned only when every configured tier failed; any
// single-tier failure is recovered by advancing to the next tier.
var ErrAllTiersFailed = errors.New("all data source tiers failed")

// Decision records which tier backed a request. It is the only channel the
// selection outcome is communicated through.
type Decision struct {
	RequestID string   `json:"request_id"`
	Tier      int      `json:"tier"`
	Source    string   `json:"source"`
	StationID *string  `json:"station_id"`
	Distance  *float64 `json:"distance"`
}

// Selector walks the tier ladder for one coordinate at a time. It holds no
// per-request state; selection is a pure function of the station set, the
// coordinate and the ceiling.
type Selector struct {
	resolver *station.Resolver
	fetchers map[Tier]provider.Fetcher
	ceiling  float64
	logger   *zap.SugaredLogger
}

// NewSelector creates a tier selector. The ceiling is expressed in the
// resolver's distance unit; zero selects DefaultCeilingKm converted to that
// unit.
func NewSelector(resolver *station.Resolver, ceiling float64, logger *zap.SugaredLogger) *Selector {
	if ceiling == 0 {
		ceiling = DefaultCeilingKm
		if resolver.Unit() == geo.Miles {
			ceiling = DefaultCeilingKm / geo.KmPerMile
		}
	}
	return &Selector{
		resolver: resolver,
		fetchers: make(map[Tier]provider.Fetcher),
		ceiling:  ceiling,
		logger:   logger,
	}
}

// Register installs the fetcher backing a tier. An unregistered tier is
// skipped during fallback.
func (s *Selector) Register(t Tier, f provider.Fetcher) {
	s.fetchers[t] = f
}

// Ceiling returns the primary-network distance ceiling in the resolver's unit.
func (s *Selector) Ceiling() float64 {
	return s.ceiling
}

// Classify determines which tier a coordinate would be served from without
// fetching anything: the station network when a quality station lies within
// the ceiling, otherwise the first configured fallback tier.
func (s *Selector) Classify(lat, lng float64) (Decision, *station.Resolved, error) {
	if err := geo.ValidateCoordinate(lat, lng); err != nil {
		return Decision{}, nil, err
	}

	decision := Decision{RequestID: uuid.New().String()}

	best, err := s.resolver.FindBest(lat, lng)
	if err != nil {
		return Decision{}, nil, err
	}
	if best != nil && best.Distance <= s.ceiling {
		decision.Tier = int(TierStationNetwork)
		decision.Source = TierStationNetwork.String()
		decision.StationID = &best.ID
		decision.Distance = &best.Distance
		return decision, best, nil
	}

	for _, t := range []Tier{TierSecondary, TierModeled, TierReanalysis} {
		if _, ok := s.fetchers[t]; ok {
			decision.Tier = int(t)
			decision.Source = t.String()
			return decision, nil, nil
		}
	}

	// No fallback configured; still a tier-2 classification for telemetry
	decision.Tier = int(TierSecondary)
	decision.Source = TierSecondary.String()
	return decision, nil, nil
}

// FetchDaily resolves the best source for a coordinate and fetches daily
// records for the inclusive date range, falling through the tier ladder on
// failure. The first tier that succeeds wins; lower tiers are never retried
// within a request. Only when every tier fails does an error propagate.
func (s *Selector) FetchDaily(ctx context.Context, lat, lng float64, startDate, endDate time.Time, dataTypes []string) ([]types.DailyRecord, Decision, error) {
	if err := geo.ValidateCoordinate(lat, lng); err != nil {
		return nil, Decision{}, err
	}
	if endDate.Before(startDate) {
		return nil, Decision{}, fmt.Errorf("end date %s before start date %s",
			endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	decision := Decision{RequestID: uuid.New().String()}
	var lastErr error

	// Tier 1: nearest quality station within the ceiling
	if fetcher, ok := s.fetchers[TierStationNetwork]; ok {
		best, err := s.resolver.FindBest(lat, lng)
		if err != nil {
			return nil, Decision{}, err
		}
		if best == nil || best.Distance > s.ceiling {
			s.logger.Debugf("no station within %.0f %s of %.4f,%.4f, trying fallback tiers",
				s.ceiling, s.resolver.Unit(), lat, lng)
		} else {
			records, err := fetcher.FetchDaily(ctx, provider.Request{
				StationID: best.ID,
				Latitude:  lat,
				Longitude: lng,
				Start:     startDate,
				End:       endDate,
				DataTypes: dataTypes,
			})
			if err == nil {
				decision.Tier = int(TierStationNetwork)
				decision.Source = TierStationNetwork.String()
				decision.StationID = &best.ID
				decision.Distance = &best.Distance
				return records, decision, nil
			}
			lastErr = err
			s.logger.Warnf("station-network fetch failed for %s: %v", best.ID, err)
			if ctx.Err() != nil {
				return nil, decision, ctx.Err()
			}
		}
	}

	// Tiers 2-4 in strict order
	for _, t := range []Tier{TierSecondary, TierModeled, TierReanalysis} {
		fetcher, ok := s.fetchers[t]
		if !ok {
			continue
		}

		records, err := fetcher.FetchDaily(ctx, provider.Request{
			Latitude:  lat,
			Longitude: lng,
			Start:     startDate,
			End:       endDate,
			DataTypes: dataTypes,
		})
		if err != nil {
			lastErr = err
			s.logger.Warnf("%s fetch failed: %v", t, err)
			if ctx.Err() != nil {
				return nil, decision, ctx.Err()
			}
			continue
		}

		decision.Tier = int(t)
		decision.Source = t.String()
		if t == TierReanalysis {
			s.logger.Warnf("serving %.4f,%.4f from coarse reanalysis; expect materially lower fidelity", lat, lng)
		}
		return records, decision, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no data source tiers configured")
	}
	return nil, decision, fmt.Errorf("%w: %v", ErrAllTiersFailed, lastErr)
}
