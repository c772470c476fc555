// Package app wires configuration, the station index, the data-source tiers
// and the REST server into a running service.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/xyloclime/snowline/internal/cache"
	"github.com/xyloclime/snowline/internal/controllers/restserver"
	"github.com/xyloclime/snowline/internal/geo"
	"github.com/xyloclime/snowline/internal/log"
	"github.com/xyloclime/snowline/internal/provider"
	"github.com/xyloclime/snowline/internal/station"
	"github.com/xyloclime/snowline/internal/tier"
	"github.com/xyloclime/snowline/pkg/config"
)

const defaultCacheTTL = 24 * time.Hour

// App represents the main application
type App struct {
	cfg    *config.Data
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.Data, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	index, err := station.NewIndex(a.cfg.Stations.File, station.IndexOptions{
		CapabilityCutoff: a.cfg.Stations.CapabilityCutoffYear,
		QualityRecency:   a.cfg.Stations.QualityRecencyYear,
		Country:          a.cfg.Stations.Country,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("loading station index: %w", err)
	}

	unit := geo.Kilometers
	if a.cfg.Resolver.Unit != "" {
		if unit, err = geo.ParseUnit(a.cfg.Resolver.Unit); err != nil {
			return err
		}
	}
	resolver := station.NewResolver(index, unit)

	selector := tier.NewSelector(resolver, a.ceiling(unit), a.logger)
	store, err := a.registerProviders(selector)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	scheduler, err := a.startRefresh(index)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	if a.cfg.REST != nil {
		rest := restserver.NewController(ctx, &wg, *a.cfg.REST, resolver, selector, a.logger)
		if err := rest.StartServer(); err != nil {
			return fmt.Errorf("starting REST server: %w", err)
		}
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// ceiling converts the configured tier ceiling into the resolver's unit,
// defaulting to 200 km.
func (a *App) ceiling(unit geo.Unit) float64 {
	if a.cfg.Resolver.Ceiling > 0 {
		return a.cfg.Resolver.Ceiling
	}
	if unit == geo.Miles {
		return tier.DefaultCeilingKm / geo.KmPerMile
	}
	return tier.DefaultCeilingKm
}

// registerProviders builds the per-tier fetchers from configuration. The
// station-network client is wrapped in the record cache when one is
// configured; the remote fallbacks are wrapped in circuit breakers. The
// returned store is nil when caching is disabled.
func (a *App) registerProviders(selector *tier.Selector) (*cache.Store, error) {
	p := a.cfg.Providers

	var store *cache.Store
	if a.cfg.Cache.Path != "" {
		ttl := defaultCacheTTL
		if a.cfg.Cache.TTLHours > 0 {
			ttl = time.Duration(a.cfg.Cache.TTLHours) * time.Hour
		}
		var err error
		store, err = cache.Open(a.cfg.Cache.Path, ttl, a.logger)
		if err != nil {
			return nil, fmt.Errorf("opening record cache: %w", err)
		}
	}

	ncei := provider.NewNCEIClient(p.NCEI.BaseURL, timeoutOf(p.NCEI.TimeoutSeconds), a.logger)
	if store != nil {
		selector.Register(tier.TierStationNetwork, cache.NewFetcher(ncei, store, a.logger))
	} else {
		selector.Register(tier.TierStationNetwork, ncei)
	}

	if p.VisualCrossing.APIKey != "" {
		vc := provider.NewVisualCrossingClient(p.VisualCrossing.BaseURL, p.VisualCrossing.APIKey,
			timeoutOf(p.VisualCrossing.TimeoutSeconds), a.logger)
		selector.Register(tier.TierSecondary, provider.NewBreakerFetcher(vc, a.logger))
	} else {
		a.logger.Warn("no Visual Crossing API key configured; secondary tier disabled")
	}

	ifs := provider.NewOpenMeteoClient(p.OpenMeteo.BaseURL, provider.ModelECMWFIFS, "openmeteo-ifs",
		timeoutOf(p.OpenMeteo.TimeoutSeconds), a.logger)
	selector.Register(tier.TierModeled, provider.NewBreakerFetcher(ifs, a.logger))

	era5 := provider.NewOpenMeteoClient(p.OpenMeteo.BaseURL, provider.ModelERA5, "openmeteo-era5",
		timeoutOf(p.OpenMeteo.TimeoutSeconds), a.logger)
	selector.Register(tier.TierReanalysis, era5)

	return store, nil
}

// startRefresh schedules periodic station-index reloads when configured.
func (a *App) startRefresh(index *station.Index) (*gocron.Scheduler, error) {
	if a.cfg.Stations.RefreshMinutes <= 0 {
		return nil, nil
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(a.cfg.Stations.RefreshMinutes).Minutes().Do(func() {
		if err := index.Reload(); err != nil {
			a.logger.Errorf("station index refresh failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling station index refresh: %w", err)
	}
	scheduler.StartAsync()
	a.logger.Infof("station index refresh scheduled every %d minutes", a.cfg.Stations.RefreshMinutes)
	return scheduler, nil
}

func timeoutOf(seconds int) time.Duration {
	if seconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(seconds) * time.Second
}
