// Package provider contains the remote data-source clients that supply daily
// observation records: the station network archive and the coordinate-based
// fallback providers.
package provider

import (
	"context"
	"time"

	"github.com/xyloclime/snowline/internal/types"
)

// Request describes one daily-records fetch. Station-backed providers use
// StationID; gridded providers use the coordinate. Start and End are
// inclusive calendar days. An empty DataTypes means all known types.
type Request struct {
	StationID string
	Latitude  float64
	Longitude float64
	Start     time.Time
	End       time.Time
	DataTypes []string
}

// Fetcher is the record-fetcher boundary. Implementations must honor context
// cancellation and deadlines; a fetch is the only operation in the system
// that suspends on external I/O.
type Fetcher interface {
	Name() string
	FetchDaily(ctx context.Context, req Request) ([]types.DailyRecord, error)
}

func (r Request) dataTypes() []string {
	if len(r.DataTypes) == 0 {
		return types.AllDataTypes
	}
	return r.DataTypes
}

const dateLayout = "2006-01-02"
