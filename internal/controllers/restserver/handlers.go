package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xyloclime/snowline/internal/constants"
	"github.com/xyloclime/snowline/internal/summary"
	"github.com/xyloclime/snowline/internal/tier"
	"github.com/xyloclime/snowline/internal/types"
	"github.com/xyloclime/snowline/pkg/responseformat"
)

// fetchTimeout bounds the remote round trips behind a single API request.
const fetchTimeout = 90 * time.Second

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, status int, msg string) {
	h.formatter.WriteError(w, req, status, msg)
}

func floatParam(req *http.Request, name string) (float64, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing required parameter %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q is not a number", name)
	}
	return v, nil
}

func intParam(req *http.Request, name string, def int) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %q is not an integer", name)
	}
	return v, nil
}

func coordParams(req *http.Request) (float64, float64, error) {
	lat, err := floatParam(req, "lat")
	if err != nil {
		return 0, 0, err
	}
	lng, err := floatParam(req, "lng")
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

// GetHealth reports liveness and the running version.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, map[string]string{
		"status":  "ok",
		"version": constants.Version,
	}, nil)
}

// GetResolve returns the nearest stations to a coordinate.
// Query: lat, lng, count (default 5), quality (default true).
func (h *Handlers) GetResolve(w http.ResponseWriter, req *http.Request) {
	lat, lng, err := coordParams(req)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	count, err := intParam(req, "count", 5)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	qualityOnly := req.URL.Query().Get("quality") != "false"

	stations, err := h.controller.resolver.FindNearest(lat, lng, count, qualityOnly)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	h.formatter.WriteResponse(w, req, map[string]any{
		"unit":     h.controller.resolver.Unit().String(),
		"stations": stations,
	}, nil)
}

// GetCoverage returns a station-coverage report for an area.
// Query: lat, lng, radius (default 50).
func (h *Handlers) GetCoverage(w http.ResponseWriter, req *http.Request) {
	lat, lng, err := coordParams(req)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	radius := 50.0
	if req.URL.Query().Get("radius") != "" {
		if radius, err = floatParam(req, "radius"); err != nil {
			h.writeError(w, req, http.StatusBadRequest, err.Error())
			return
		}
	}

	report, err := h.controller.resolver.Coverage(lat, lng, radius)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	h.formatter.WriteResponse(w, req, report, nil)
}

// GetTierDecision classifies which data-source tier backs a coordinate
// without fetching any records.
func (h *Handlers) GetTierDecision(w http.ResponseWriter, req *http.Request) {
	lat, lng, err := coordParams(req)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	decision, _, err := h.controller.selector.Classify(lat, lng)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	h.formatter.WriteResponse(w, req, decision, nil)
}

func (h *Handlers) fetchAndSummarize(req *http.Request, lat, lng float64, start, end time.Time, dataTypes []string) ([]types.DailyRecord, tier.Decision, error) {
	ctx, cancel := context.WithTimeout(req.Context(), fetchTimeout)
	defer cancel()
	return h.controller.selector.FetchDaily(ctx, lat, lng, start, end, dataTypes)
}

func (h *Handlers) writeSummaryError(w http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, tier.ErrAllTiersFailed) {
		h.writeError(w, req, http.StatusBadGateway, err.Error())
		return
	}
	h.writeError(w, req, http.StatusBadRequest, err.Error())
}

// GetMonthSummary returns the generic summary for one calendar month.
// Query: lat, lng, year, month.
func (h *Handlers) GetMonthSummary(w http.ResponseWriter, req *http.Request) {
	lat, lng, err := coordParams(req)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	year, err := intParam(req, "year", 0)
	if err != nil || year == 0 {
		h.writeError(w, req, http.StatusBadRequest, "parameter \"year\" is required")
		return
	}
	month, err := intParam(req, "month", 0)
	if err != nil || month < 1 || month > 12 {
		h.writeError(w, req, http.StatusBadRequest, "parameter \"month\" must be 1-12")
		return
	}

	start, end := summary.MonthRange(year, time.Month(month))
	records, decision, err := h.fetchAndSummarize(req, lat, lng, start, end, nil)
	if err != nil {
		h.writeSummaryError(w, req, err)
		return
	}

	report := summary.Calculate(records)
	report.Period = fmt.Sprintf("%04d-%02d", year, month)
	if decision.StationID != nil {
		report.StationID = *decision.StationID
	}

	h.formatter.WriteResponse(w, req, map[string]any{
		"decision": decision,
		"summary":  report,
	}, nil)
}

// GetYearSummary returns the generic summary for one calendar year.
// Query: lat, lng, year.
func (h *Handlers) GetYearSummary(w http.ResponseWriter, req *http.Request) {
	lat, lng, err := coordParams(req)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	year, err := intParam(req, "year", 0)
	if err != nil || year == 0 {
		h.writeError(w, req, http.StatusBadRequest, "parameter \"year\" is required")
		return
	}

	start, end := summary.YearRange(year)
	records, decision, err := h.fetchAndSummarize(req, lat, lng, start, end, nil)
	if err != nil {
		h.writeSummaryError(w, req, err)
		return
	}

	report := summary.Calculate(records)
	report.Period = strconv.Itoa(year)
	if decision.StationID != nil {
		report.StationID = *decision.StationID
	}

	h.formatter.WriteResponse(w, req, map[string]any{
		"decision": decision,
		"summary":  report,
	}, nil)
}

// GetSeasonSummary returns the snow summary for one snow season
// (November 1 through April 30). Query: lat, lng, year (season start year),
// storms (optional top-N override).
func (h *Handlers) GetSeasonSummary(w http.ResponseWriter, req *http.Request) {
	lat, lng, err := coordParams(req)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	year, err := intParam(req, "year", 0)
	if err != nil || year == 0 {
		h.writeError(w, req, http.StatusBadRequest, "parameter \"year\" is required")
		return
	}
	topN, err := intParam(req, "storms", summary.DefaultStormCount)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	start, end := summary.SeasonRange(year)
	dataTypes := []string{types.TypeSnow, types.TypeSnowDepth, types.TypeTempMax, types.TypeTempMin}
	records, decision, err := h.fetchAndSummarize(req, lat, lng, start, end, dataTypes)
	if err != nil {
		h.writeSummaryError(w, req, err)
		return
	}

	// The gridded tiers can return days outside the requested window
	records = summary.FilterRange(records, start, end)

	report := summary.CalculateSnow(records, topN)
	report.Season = summary.SeasonLabel(year)
	if decision.StationID != nil {
		report.StationID = *decision.StationID
	}

	h.formatter.WriteResponse(w, req, map[string]any{
		"decision": decision,
		"summary":  report,
	}, nil)
}
