package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/skywatch/internal/controllers"
	"github.com/chrissnell/skywatch/internal/locator"
	"github.com/chrissnell/skywatch/internal/log"
	"github.com/chrissnell/skywatch/internal/managers"
	"github.com/chrissnell/skywatch/internal/observation"
	"github.com/chrissnell/skywatch/internal/render"
	"github.com/chrissnell/skywatch/pkg/celestial"
	"github.com/chrissnell/skywatch/pkg/config"
	"github.com/chrissnell/skywatch/pkg/ephemeris"
	"github.com/chrissnell/skywatch/pkg/horizon"
	"github.com/chrissnell/skywatch/pkg/riseset"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance. cfg must already have defaults applied.
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Build creates the services shared by the controllers. The returned
// function releases what Build opened.
func (a *App) Build() (controllers.Deps, func(), error) {
	cfg := a.cfg
	closer := func() {}

	tz, err := horizon.ParseUTCOffset(cfg.Observer.UTCOffset)
	if err != nil {
		return controllers.Deps{}, closer, fmt.Errorf("observer.utc-offset: %w", err)
	}
	tolerance, err := cfg.Observer.ToleranceDuration()
	if err != nil {
		return controllers.Deps{}, closer, err
	}
	timeout, err := cfg.Observer.RequestTimeoutDuration()
	if err != nil {
		return controllers.Deps{}, closer, err
	}

	eph := ephemeris.NewMeeus(
		ephemeris.WithVSOP87Dir(cfg.Ephemeris.VSOP87Dir),
		ephemeris.WithEpochRange(cfg.Ephemeris.MinYear, cfg.Ephemeris.MaxYear),
	)
	if cfg.Ephemeris.VSOP87Dir == "" {
		a.logger.Warn("ephemeris.vsop87-dir not set; planets will be reported as unavailable")
	}

	presets := make([]locator.Place, 0, len(cfg.Locations))
	for _, l := range cfg.Locations {
		presets = append(presets, locator.Place{
			Name:       l.Name,
			Coordinate: celestial.GeoCoordinate{Latitude: l.Latitude, Longitude: l.Longitude},
		})
	}
	locOpts := []locator.Option{locator.WithLogger(a.logger)}
	if cfg.GeoIP.Database != "" {
		geo, err := locator.OpenGeoIP(cfg.GeoIP.Database)
		if err != nil {
			return controllers.Deps{}, closer, err
		}
		closer = func() { geo.Close() }
		locOpts = append(locOpts, locator.WithGeoLookup(geo))
		a.logger.Infof("GeoIP lookups enabled from %s", cfg.GeoIP.Database)
	}
	loc, err := locator.New(presets, cfg.Observer.DefaultLocation, locOpts...)
	if err != nil {
		closer()
		return controllers.Deps{}, func() {}, err
	}

	svc := observation.NewService(eph,
		observation.WithTimezone(tz),
		observation.WithSampleCount(cfg.Observer.SampleCount),
		observation.WithWorkers(cfg.Observer.Workers),
		observation.WithFinderOptions(
			riseset.WithTolerance(tolerance),
			riseset.WithMaxIterations(cfg.Observer.MaxIterations),
		),
		observation.WithLogger(a.logger),
	)

	deps := controllers.Deps{
		Service:        svc,
		Locator:        loc,
		Renderer:       render.NewPNG(render.WithSize(cfg.Chart.SizePx), render.WithFontFile(cfg.Chart.FontFile)),
		ChartURLPrefix: cfg.Chart.URLPrefix,
		RequestTimeout: timeout,
	}

	if cfg.Chart.Enabled {
		deps.Charts, err = render.NewFileStore(cfg.Chart.OutputDir, cfg.Chart.Keep, deps.Renderer, a.logger)
		if err != nil {
			closer()
			return controllers.Deps{}, func() {}, err
		}
		a.logger.Infof("writing sky charts to %s", cfg.Chart.OutputDir)
	}

	return deps, closer, nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deps, closeDeps, err := a.Build()
	if err != nil {
		return err
	}
	defer closeDeps()

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, a.cfg.Controllers, deps, a.logger)
	if err != nil {
		return err
	}
	err = cm.StartControllers()
	if err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

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
