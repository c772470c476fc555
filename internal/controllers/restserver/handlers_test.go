package restserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xyloclime/snowline/internal/geo"
	"github.com/xyloclime/snowline/internal/provider"
	"github.com/xyloclime/snowline/internal/station"
	"github.com/xyloclime/snowline/internal/tier"
	"github.com/xyloclime/snowline/internal/types"
	"github.com/xyloclime/snowline/pkg/config"
)

type stubFetcher struct {
	name    string
	records []types.DailyRecord
	err     error
	calls   int
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) FetchDaily(_ context.Context, _ provider.Request) ([]types.DailyRecord, error) {
	s.calls++
	return s.records, s.err
}

func qualityCoverage() map[string]station.Coverage {
	return map[string]station.Coverage{
		types.TypeTempMax:   {Start: 1950, End: 2025},
		types.TypeTempMin:   {Start: 1950, End: 2025},
		types.TypePrecip:    {Start: 1950, End: 2025},
		types.TypeSnow:      {Start: 1950, End: 2025},
		types.TypeSnowDepth: {Start: 1950, End: 2025},
	}
}

func newTestServer(t *testing.T, primary, secondary provider.Fetcher) (*httptest.Server, func()) {
	t.Helper()

	idx := station.NewIndexFromRecords([]station.Record{
		{
			ID:        "USW00094728",
			Name:      "NY CITY CENTRAL PARK",
			Latitude:  40.7789,
			Longitude: -73.9692,
			DataTypes: qualityCoverage(),
		},
	}, station.IndexOptions{}, zap.NewNop().Sugar())

	resolver := station.NewResolver(idx, geo.Kilometers)
	selector := tier.NewSelector(resolver, tier.DefaultCeilingKm, zap.NewNop().Sugar())
	if primary != nil {
		selector.Register(tier.TierStationNetwork, primary)
	}
	if secondary != nil {
		selector.Register(tier.TierSecondary, secondary)
	}

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	ctrl := NewController(ctx, &wg, config.RESTData{ListenAddr: ":0"}, resolver, selector, zap.NewNop().Sugar())
	srv := httptest.NewServer(ctrl.Router())
	return srv, func() {
		srv.Close()
		cancel()
		wg.Wait()
	}
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status = %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s response: %v", url, err)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, teardown := newTestServer(t, nil, nil)
	defer teardown()

	var body map[string]string
	getJSON(t, srv.URL+"/api/health", http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
	if body["version"] == "" {
		t.Error("version missing from health response")
	}
}

func TestResolveEndpoint(t *testing.T) {
	srv, teardown := newTestServer(t, nil, nil)
	defer teardown()

	var body struct {
		Unit     string `json:"unit"`
		Stations []struct {
			ID       string  `json:"id"`
			Distance float64 `json:"distance"`
		} `json:"stations"`
	}
	getJSON(t, srv.URL+"/api/resolve?lat=40.7128&lng=-74.0060", http.StatusOK, &body)

	if body.Unit != "km" {
		t.Errorf("unit = %q, want km", body.Unit)
	}
	if len(body.Stations) != 1 {
		t.Fatalf("stations = %d, want 1", len(body.Stations))
	}
	if body.Stations[0].ID != "USW00094728" {
		t.Errorf("station id = %q", body.Stations[0].ID)
	}
	if body.Stations[0].Distance <= 0 || body.Stations[0].Distance > 20 {
		t.Errorf("distance = %v, want a few km", body.Stations[0].Distance)
	}
}

func TestResolveEndpointRejectsBadParams(t *testing.T) {
	srv, teardown := newTestServer(t, nil, nil)
	defer teardown()

	tests := []struct {
		name  string
		query string
	}{
		{"missing lat", "lng=-74.0060"},
		{"missing lng", "lat=40.7128"},
		{"non-numeric lat", "lat=abc&lng=-74.0060"},
		{"latitude out of range", "lat=91&lng=-74.0060"},
		{"non-integer count", "lat=40.7128&lng=-74.0060&count=two"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]string
			getJSON(t, srv.URL+"/api/resolve?"+tc.query, http.StatusBadRequest, &body)
			if body["error"] == "" {
				t.Error("error body missing")
			}
		})
	}
}

func TestCoverageEndpoint(t *testing.T) {
	srv, teardown := newTestServer(t, nil, nil)
	defer teardown()

	var body struct {
		StationsFound int     `json:"stations_found"`
		Radius        float64 `json:"radius"`
	}
	getJSON(t, srv.URL+"/api/coverage?lat=40.7128&lng=-74.0060&radius=100", http.StatusOK, &body)
	if body.StationsFound != 1 {
		t.Errorf("stations_found = %d, want 1", body.StationsFound)
	}
	if body.Radius != 100 {
		t.Errorf("radius = %v, want 100", body.Radius)
	}
}

func TestTierEndpoint(t *testing.T) {
	srv, teardown := newTestServer(t, &stubFetcher{name: "ncei"}, &stubFetcher{name: "visualcrossing"})
	defer teardown()

	var near struct {
		Tier      int     `json:"tier"`
		Source    string  `json:"source"`
		StationID *string `json:"station_id"`
	}
	getJSON(t, srv.URL+"/api/tier?lat=40.7128&lng=-74.0060", http.StatusOK, &near)
	if near.Tier != int(tier.TierStationNetwork) {
		t.Errorf("tier = %d, want %d", near.Tier, tier.TierStationNetwork)
	}
	if near.StationID == nil || *near.StationID != "USW00094728" {
		t.Errorf("station_id = %v, want USW00094728", near.StationID)
	}

	// Honolulu is far beyond the ceiling from the only station.
	var far struct {
		Tier      int     `json:"tier"`
		StationID *string `json:"station_id"`
	}
	getJSON(t, srv.URL+"/api/tier?lat=21.3069&lng=-157.8583", http.StatusOK, &far)
	if far.Tier != int(tier.TierSecondary) {
		t.Errorf("far tier = %d, want %d", far.Tier, tier.TierSecondary)
	}
	if far.StationID != nil {
		t.Errorf("far station_id = %q, want null", *far.StationID)
	}
}

func TestSeasonSummaryEndpoint(t *testing.T) {
	nov15 := 4.0
	records := []types.DailyRecord{
		{Date: time.Date(2023, time.November, 15, 0, 0, 0, 0, time.UTC), Snow: &nov15},
		{Date: time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC), Snow: types.Float64Ptr(8.5)},
		// Outside the season window; must not count.
		{Date: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), Snow: types.Float64Ptr(99)},
	}
	primary := &stubFetcher{name: "ncei", records: records}
	srv, teardown := newTestServer(t, primary, nil)
	defer teardown()

	var body struct {
		Decision struct {
			Tier   int    `json:"tier"`
			Source string `json:"source"`
		} `json:"decision"`
		Summary struct {
			Season        string   `json:"season"`
			TotalSnowfall *float64 `json:"total_snowfall"`
			DaysWithSnow  int      `json:"days_with_snow"`
			BiggestStorms []struct {
				Amount float64 `json:"amount"`
			} `json:"biggest_storms"`
		} `json:"summary"`
	}
	getJSON(t, srv.URL+"/api/summary/season?lat=40.7128&lng=-74.0060&year=2023", http.StatusOK, &body)

	if body.Decision.Tier != int(tier.TierStationNetwork) {
		t.Errorf("decision tier = %d, want %d", body.Decision.Tier, tier.TierStationNetwork)
	}
	if body.Summary.Season != "2023-2024" {
		t.Errorf("season = %q, want 2023-2024", body.Summary.Season)
	}
	if body.Summary.TotalSnowfall == nil {
		t.Fatal("total_snowfall missing")
	}
	if *body.Summary.TotalSnowfall != 12.5 {
		t.Errorf("snow total = %v, want 12.5 (May day must be excluded)", *body.Summary.TotalSnowfall)
	}
	if body.Summary.DaysWithSnow != 2 {
		t.Errorf("days_with_snow = %d, want 2", body.Summary.DaysWithSnow)
	}
	if len(body.Summary.BiggestStorms) != 2 || body.Summary.BiggestStorms[0].Amount != 8.5 {
		t.Errorf("biggest_storms = %+v, want biggest first", body.Summary.BiggestStorms)
	}
	if primary.calls != 1 {
		t.Errorf("primary fetcher calls = %d, want 1", primary.calls)
	}
}

func TestMonthSummaryEndpoint(t *testing.T) {
	records := []types.DailyRecord{
		{
			Date:    time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
			TempMax: types.Float64Ptr(30),
			TempMin: types.Float64Ptr(18),
			Precip:  types.Float64Ptr(0.25),
		},
		{
			Date:    time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC),
			TempMax: types.Float64Ptr(40),
		},
	}
	primary := &stubFetcher{name: "ncei", records: records}
	srv, teardown := newTestServer(t, primary, nil)
	defer teardown()

	var body struct {
		Summary struct {
			Period      string `json:"period"`
			DayCount    int    `json:"days_with_data"`
			Temperature struct {
				AvgHigh *float64 `json:"avg_high"`
				AvgLow  *float64 `json:"avg_low"`
			} `json:"temperature"`
			Precipitation struct {
				Total *float64 `json:"total"`
			} `json:"precipitation"`
		} `json:"summary"`
	}
	getJSON(t, srv.URL+"/api/summary/month?lat=40.7128&lng=-74.0060&year=2024&month=1", http.StatusOK, &body)

	if body.Summary.Period != "2024-01" {
		t.Errorf("period = %q, want 2024-01", body.Summary.Period)
	}
	if body.Summary.DayCount != 2 {
		t.Errorf("days_with_data = %d, want 2", body.Summary.DayCount)
	}
	if body.Summary.Temperature.AvgHigh == nil || *body.Summary.Temperature.AvgHigh != 35.0 {
		t.Errorf("avg_high = %v, want 35.0", body.Summary.Temperature.AvgHigh)
	}
	if body.Summary.Temperature.AvgLow == nil || *body.Summary.Temperature.AvgLow != 18.0 {
		t.Errorf("avg_low = %v, want 18.0", body.Summary.Temperature.AvgLow)
	}
	if body.Summary.Precipitation.Total == nil || *body.Summary.Precipitation.Total != 0.25 {
		t.Errorf("precip total = %v, want 0.25", body.Summary.Precipitation.Total)
	}
}

func TestMonthSummaryValidation(t *testing.T) {
	srv, teardown := newTestServer(t, &stubFetcher{name: "ncei"}, nil)
	defer teardown()

	tests := []string{
		"lat=40.7&lng=-74.0",
		"lat=40.7&lng=-74.0&year=2024",
		"lat=40.7&lng=-74.0&year=2024&month=13",
	}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			getJSON(t, srv.URL+"/api/summary/month?"+q, http.StatusBadRequest, nil)
		})
	}
}

func TestSummaryAllTiersFailedIsBadGateway(t *testing.T) {
	primary := &stubFetcher{name: "ncei", err: fmt.Errorf("upstream down")}
	secondary := &stubFetcher{name: "visualcrossing", err: fmt.Errorf("also down")}
	srv, teardown := newTestServer(t, primary, secondary)
	defer teardown()

	var body map[string]string
	getJSON(t, srv.URL+"/api/summary/year?lat=40.7128&lng=-74.0060&year=2024", http.StatusBadGateway, &body)
	if body["error"] == "" {
		t.Error("error body missing")
	}
}
