package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xyloclime/snowline/internal/types"
)

// DefaultNCEIBaseURL is the daily-summaries access service endpoint.
const DefaultNCEIBaseURL = "https://www.ncei.noaa.gov/access/services/data/v1"

// NCEIClient fetches daily summaries for a station from the NCEI Data API v1.
// No API key is required; units are US standard to match the station archive.
type NCEIClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.SugaredLogger
}

// NewNCEIClient creates an NCEI daily-summaries client. An empty baseURL
// selects the public endpoint.
func NewNCEIClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *NCEIClient {
	if baseURL == "" {
		baseURL = DefaultNCEIBaseURL
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &NCEIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name identifies the provider in tier decisions and logs.
func (n *NCEIClient) Name() string {
	return "ncei"
}

// FetchDaily retrieves daily records for req.StationID over the inclusive
// date range. A record field that fails to parse is dropped as missing; the
// rest of the record survives.
func (n *NCEIClient) FetchDaily(ctx context.Context, req Request) ([]types.DailyRecord, error) {
	if req.StationID == "" {
		return nil, fmt.Errorf("ncei: station id is required")
	}

	params := url.Values{}
	params.Set("dataset", "daily-summaries")
	params.Set("stations", req.StationID)
	params.Set("startDate", req.Start.Format(dateLayout))
	params.Set("endDate", req.End.Format(dateLayout))
	params.Set("dataTypes", strings.Join(req.dataTypes(), ","))
	params.Set("format", "json")
	params.Set("units", "standard")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ncei: building request: %w", err)
	}

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ncei: fetching %s: %w", req.StationID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ncei: unexpected status %d for %s", resp.StatusCode, req.StationID)
	}

	var raw []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("ncei: decoding response: %w", err)
	}

	records := parseNCEIRecords(raw, n.logger)
	n.logger.Debugf("ncei: %d records for %s (%s to %s)",
		len(records), req.StationID, req.Start.Format(dateLayout), req.End.Format(dateLayout))
	return records, nil
}

// parseNCEIRecords converts the API's row objects to DailyRecords, ordered
// by date. Rows with an unparseable date are skipped entirely; a single bad
// numeric field only loses that field.
func parseNCEIRecords(raw []map[string]any, logger *zap.SugaredLogger) []types.DailyRecord {
	records := make([]types.DailyRecord, 0, len(raw))
	for _, row := range raw {
		dateStr, _ := row["DATE"].(string)
		// Rows sometimes carry a time component; only the day matters
		if len(dateStr) > 10 {
			dateStr = dateStr[:10]
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			logger.Debugf("ncei: skipping record with bad date %q", dateStr)
			continue
		}

		rec := types.DailyRecord{Date: date}
		for _, code := range types.AllDataTypes {
			rec.SetValue(code, coerceField(row[code]))
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records
}

// coerceField handles the API returning numerics either as JSON numbers or
// as strings. Anything unparseable is missing, not zero.
func coerceField(v any) *float64 {
	switch val := v.(type) {
	case float64:
		f := val
		return &f
	case string:
		return types.ParseField(val)
	}
	return nil
}
