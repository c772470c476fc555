package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xyloclime/snowline/internal/types"
)

// DefaultOpenMeteoArchiveURL is the historical weather archive endpoint.
const DefaultOpenMeteoArchiveURL = "https://archive-api.open-meteo.com/v1/archive"

// Open-Meteo model selectors for the two gridded tiers. The IFS model is the
// modeled-estimate source; ERA5 is the coarse reanalysis of last resort.
const (
	ModelECMWFIFS = "ecmwf_ifs"
	ModelERA5     = "era5"
)

// OpenMeteoClient fetches gridded daily history by coordinate from the
// Open-Meteo archive API, parameterized by reanalysis model.
type OpenMeteoClient struct {
	baseURL string
	model   string
	name    string
	client  *http.Client
	logger  *zap.SugaredLogger
}

type openMeteoResponse struct {
	Daily openMeteoDaily `json:"daily"`
}

type openMeteoDaily struct {
	Time             []string   `json:"time"`
	TemperatureMax   []*float64 `json:"temperature_2m_max"`
	TemperatureMin   []*float64 `json:"temperature_2m_min"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	SnowfallSum      []*float64 `json:"snowfall_sum"`
}

// NewOpenMeteoClient creates an archive client for one model. The name is
// used in tier decisions and logs (e.g. "ecmwf-ifs", "era5").
func NewOpenMeteoClient(baseURL, model, name string, timeout time.Duration, logger *zap.SugaredLogger) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoArchiveURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenMeteoClient{
		baseURL: baseURL,
		model:   model,
		name:    name,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name identifies the provider in tier decisions and logs.
func (o *OpenMeteoClient) Name() string {
	return o.name
}

// FetchDaily retrieves gridded daily records for the request coordinate.
// Snow depth is not available from this source and stays missing.
func (o *OpenMeteoClient) FetchDaily(ctx context.Context, req Request) ([]types.DailyRecord, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', 4, 64))
	params.Set("start_date", req.Start.Format(dateLayout))
	params.Set("end_date", req.End.Format(dateLayout))
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,snowfall_sum")
	params.Set("temperature_unit", "fahrenheit")
	params.Set("precipitation_unit", "inch")
	params.Set("timezone", "UTC")
	if o.model != "" {
		params.Set("models", o.model)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", o.name, err)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: fetching: %w", o.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", o.name, resp.StatusCode)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", o.name, err)
	}

	records := make([]types.DailyRecord, 0, len(payload.Daily.Time))
	for i, ts := range payload.Daily.Time {
		date, err := time.Parse(dateLayout, ts)
		if err != nil {
			o.logger.Debugf("%s: skipping day with bad date %q", o.name, ts)
			continue
		}
		rec := types.DailyRecord{Date: date}
		if i < len(payload.Daily.TemperatureMax) {
			rec.TempMax = payload.Daily.TemperatureMax[i]
		}
		if i < len(payload.Daily.TemperatureMin) {
			rec.TempMin = payload.Daily.TemperatureMin[i]
		}
		if i < len(payload.Daily.PrecipitationSum) {
			rec.Precip = payload.Daily.PrecipitationSum[i]
		}
		if i < len(payload.Daily.SnowfallSum) {
			rec.Snow = payload.Daily.SnowfallSum[i]
		}
		records = append(records, rec)
	}

	o.logger.Debugf("%s: %d records for %.4f,%.4f", o.name, len(records), req.Latitude, req.Longitude)
	return records, nil
}
