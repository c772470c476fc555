// Package restserver exposes station resolution and summary statistics over
// a JSON HTTP API.
package restserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xyloclime/snowline/internal/station"
	"github.com/xyloclime/snowline/internal/tier"
	"github.com/xyloclime/snowline/pkg/config"
)

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	cfg      config.RESTData
	resolver *station.Resolver
	selector *tier.Selector
	Server   http.Server
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg config.RESTData, resolver *station.Resolver, selector *tier.Selector, logger *zap.SugaredLogger) *Controller {
	ctrl := &Controller{
		ctx:      ctx,
		wg:       wg,
		cfg:      cfg,
		resolver: resolver,
		selector: selector,
		logger:   logger,
	}
	ctrl.handlers = NewHandlers(ctrl)
	return ctrl
}

// Router builds the API route table.
func (c *Controller) Router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	api.HandleFunc("/resolve", c.handlers.GetResolve).Methods(http.MethodGet)
	api.HandleFunc("/coverage", c.handlers.GetCoverage).Methods(http.MethodGet)
	api.HandleFunc("/tier", c.handlers.GetTierDecision).Methods(http.MethodGet)
	api.HandleFunc("/summary/month", c.handlers.GetMonthSummary).Methods(http.MethodGet)
	api.HandleFunc("/summary/year", c.handlers.GetYearSummary).Methods(http.MethodGet)
	api.HandleFunc("/summary/season", c.handlers.GetSeasonSummary).Methods(http.MethodGet)

	return router
}

// StartServer begins listening and shuts the server down when the
// controller's context is cancelled.
func (c *Controller) StartServer() error {
	c.Server = http.Server{
		Addr:         c.cfg.ListenAddr,
		Handler:      c.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.Infof("REST server listening on %s", c.cfg.ListenAddr)
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Server.Shutdown(shutdownCtx); err != nil {
			c.logger.Errorf("REST server shutdown error: %v", err)
		}
	}()

	return nil
}
