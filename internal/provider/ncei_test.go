package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xyloclime/snowline/internal/types"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestNCEIFetchDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("dataset") != "daily-summaries" {
			t.Errorf("expected daily-summaries dataset, got %s", q.Get("dataset"))
		}
		if q.Get("stations") != "USW00094728" {
			t.Errorf("expected station USW00094728, got %s", q.Get("stations"))
		}
		if q.Get("units") != "standard" {
			t.Errorf("expected standard units, got %s", q.Get("units"))
		}
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose; SNOW on day 3 is malformed, TMAX numeric
		w.Write([]byte(`[
			{"DATE": "2024-01-02", "SNOW": "0", "TMAX": "30", "TMIN": "18"},
			{"DATE": "2024-01-01", "SNOW": "5.0", "TMAX": 33, "TMIN": "21", "PRCP": "0.42"},
			{"DATE": "2024-01-03", "SNOW": "T", "TMAX": "", "TMIN": "15"}
		]`))
	}))
	defer server.Close()

	client := NewNCEIClient(server.URL, 5*time.Second, testLogger())
	records, err := client.FetchDaily(context.Background(), Request{
		StationID: "USW00094728",
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	// Records come back ordered by date regardless of response order
	if !records[0].Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected first record on Jan 1, got %s", records[0].Date)
	}

	if records[0].Snow == nil || *records[0].Snow != 5.0 {
		t.Errorf("expected SNOW 5.0 on day one, got %v", records[0].Snow)
	}
	if records[0].TempMax == nil || *records[0].TempMax != 33 {
		t.Errorf("numeric TMAX should parse, got %v", records[0].TempMax)
	}

	// Malformed "T" and empty fields become missing, not zero, and do not
	// drop the rest of the record
	if records[2].Snow != nil {
		t.Errorf("malformed SNOW must be missing, got %v", *records[2].Snow)
	}
	if records[2].TempMax != nil {
		t.Errorf("empty TMAX must be missing, got %v", *records[2].TempMax)
	}
	if records[2].TempMin == nil || *records[2].TempMin != 15 {
		t.Errorf("good field on a partly-bad record must survive, got %v", records[2].TempMin)
	}
}

func TestNCEIFetchDailyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewNCEIClient(server.URL, 5*time.Second, testLogger())
	_, err := client.FetchDaily(context.Background(), Request{StationID: "USW00094728", Start: time.Now(), End: time.Now()})
	if err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestNCEIRequiresStationID(t *testing.T) {
	client := NewNCEIClient("http://127.0.0.1:1", time.Second, testLogger())
	if _, err := client.FetchDaily(context.Background(), Request{}); err == nil {
		t.Fatal("expected error without station id")
	}
}

func TestOpenMeteoFetchDaily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("models") != ModelERA5 {
			t.Errorf("expected era5 model param, got %s", q.Get("models"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"daily": {
			"time": ["2024-01-01", "2024-01-02"],
			"temperature_2m_max": [31.2, null],
			"temperature_2m_min": [20.1, 18.0],
			"precipitation_sum": [0.1, 0.0],
			"snowfall_sum": [1.5, null]
		}}`))
	}))
	defer server.Close()

	client := NewOpenMeteoClient(server.URL, ModelERA5, "era5", 5*time.Second, testLogger())
	records, err := client.FetchDaily(context.Background(), Request{
		Latitude: 45.0, Longitude: -93.0,
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Snow == nil || *records[0].Snow != 1.5 {
		t.Errorf("expected snowfall 1.5 on day one, got %v", records[0].Snow)
	}
	// JSON null propagates as missing
	if records[1].TempMax != nil || records[1].Snow != nil {
		t.Error("null values must stay missing")
	}
}

type failingFetcher struct {
	calls int
}

func (f *failingFetcher) Name() string { return "failing" }

func (f *failingFetcher) FetchDaily(ctx context.Context, req Request) ([]types.DailyRecord, error) {
	f.calls++
	return nil, errors.New("provider down")
}

func TestBreakerFetcherOpensAfterFailures(t *testing.T) {
	inner := &failingFetcher{}
	breaker := NewBreakerFetcher(inner, testLogger())

	for i := 0; i < 10; i++ {
		_, err := breaker.FetchDaily(context.Background(), Request{})
		if err == nil {
			t.Fatal("expected failure")
		}
	}

	// After the trip threshold the breaker stops calling the provider
	if inner.calls >= 10 {
		t.Errorf("breaker never opened: inner called %d times", inner.calls)
	}
}
