package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xyloclime/snowline/internal/types"
)

// BreakerFetcher wraps a Fetcher with a circuit breaker so a rate-limited or
// down provider fails fast and tier fallback advances without waiting out a
// timeout on every request.
type BreakerFetcher struct {
	inner   Fetcher
	breaker *gobreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

// NewBreakerFetcher wraps inner with a circuit breaker that opens after five
// consecutive failures and probes again after thirty seconds.
func NewBreakerFetcher(inner Fetcher, logger *zap.SugaredLogger) *BreakerFetcher {
	settings := gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("provider %s circuit breaker %s -> %s", name, from, to)
		},
	}
	return &BreakerFetcher{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Name identifies the wrapped provider.
func (b *BreakerFetcher) Name() string {
	return b.inner.Name()
}

// FetchDaily delegates to the wrapped fetcher through the breaker.
func (b *BreakerFetcher) FetchDaily(ctx context.Context, req Request) ([]types.DailyRecord, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.FetchDaily(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.inner.Name(), err)
	}
	return result.([]types.DailyRecord), nil
}
