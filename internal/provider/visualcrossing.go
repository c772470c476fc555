package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/xyloclime/snowline/internal/types"
)

// DefaultVisualCrossingBaseURL is the timeline weather API endpoint.
const DefaultVisualCrossingBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// VisualCrossingClient fetches daily history by coordinate from the Visual
// Crossing timeline API. It backs the secondary tier when no station network
// coverage exists.
type VisualCrossingClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.SugaredLogger
}

type visualCrossingResponse struct {
	Days []visualCrossingDay `json:"days"`
}

type visualCrossingDay struct {
	Datetime  string   `json:"datetime"`
	TempMax   *float64 `json:"tempmax"`
	TempMin   *float64 `json:"tempmin"`
	Precip    *float64 `json:"precip"`
	Snow      *float64 `json:"snow"`
	SnowDepth *float64 `json:"snowdepth"`
}

// NewVisualCrossingClient creates a timeline API client.
func NewVisualCrossingClient(baseURL, apiKey string, timeout time.Duration, logger *zap.SugaredLogger) *VisualCrossingClient {
	if baseURL == "" {
		baseURL = DefaultVisualCrossingBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &VisualCrossingClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name identifies the provider in tier decisions and logs.
func (v *VisualCrossingClient) Name() string {
	return "visualcrossing"
}

// FetchDaily retrieves daily records for the request coordinate over the
// inclusive date range.
func (v *VisualCrossingClient) FetchDaily(ctx context.Context, req Request) ([]types.DailyRecord, error) {
	if v.apiKey == "" {
		return nil, fmt.Errorf("visualcrossing: no api key configured")
	}

	endpoint := fmt.Sprintf("%s/%f,%f/%s/%s",
		v.baseURL, req.Latitude, req.Longitude,
		req.Start.Format(dateLayout), req.End.Format(dateLayout))

	params := url.Values{}
	params.Set("unitGroup", "us")
	params.Set("include", "days")
	params.Set("elements", "datetime,tempmax,tempmin,precip,snow,snowdepth")
	params.Set("key", v.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("visualcrossing: building request: %w", err)
	}

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("visualcrossing: fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("visualcrossing: rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("visualcrossing: unexpected status %d", resp.StatusCode)
	}

	var payload visualCrossingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("visualcrossing: decoding response: %w", err)
	}

	records := make([]types.DailyRecord, 0, len(payload.Days))
	for _, d := range payload.Days {
		date, err := time.Parse(dateLayout, d.Datetime)
		if err != nil {
			v.logger.Debugf("visualcrossing: skipping day with bad date %q", d.Datetime)
			continue
		}
		records = append(records, types.DailyRecord{
			Date:      date,
			TempMax:   d.TempMax,
			TempMin:   d.TempMin,
			Precip:    d.Precip,
			Snow:      d.Snow,
			SnowDepth: d.SnowDepth,
		})
	}

	v.logger.Debugf("visualcrossing: %d records for %.4f,%.4f", len(records), req.Latitude, req.Longitude)
	return records, nil
}
