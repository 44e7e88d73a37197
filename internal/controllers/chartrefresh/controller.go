// Package chartrefresh keeps a chart of the current sky in the chart
// directory, re-rendered on a schedule.
package chartrefresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/skywatch/internal/controllers"
	"github.com/chrissnell/skywatch/internal/locator"
	"github.com/chrissnell/skywatch/internal/observation"
	"github.com/chrissnell/skywatch/pkg/config"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Controller renders the current sky for one location on a schedule
type Controller struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	cfg       config.ChartRefreshData
	deps      controllers.Deps
	scheduler *gocron.Scheduler
	logger    *zap.SugaredLogger

	mu     sync.Mutex
	latest string
}

// NewController validates the schedule and registers the refresh job. The
// job does not run until StartController.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg config.ChartRefreshData, deps controllers.Deps, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Service == nil || deps.Locator == nil {
		return nil, fmt.Errorf("chart refresh requires an observation service and a locator")
	}
	if deps.Charts == nil {
		return nil, fmt.Errorf("chart refresh requires chart rendering to be enabled")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultRefreshSchedule
	}

	c := &Controller{
		ctx:       ctx,
		wg:        wg,
		cfg:       cfg,
		deps:      deps,
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
	}
	c.scheduler.SingletonModeAll()

	var job *gocron.Scheduler
	if every, err := time.ParseDuration(cfg.Schedule); err == nil {
		if every <= 0 {
			return nil, fmt.Errorf("chart refresh interval must be positive, got %v", every)
		}
		job = c.scheduler.Every(every)
	} else {
		job = c.scheduler.Cron(cfg.Schedule)
	}
	if _, err := job.Do(c.runJob); err != nil {
		return nil, fmt.Errorf("invalid chart refresh schedule %q: %v", cfg.Schedule, err)
	}

	return c, nil
}

// StartController starts the scheduler and stops it when the context ends
func (c *Controller) StartController() error {
	c.logger.Infof("Starting chart refresh controller (schedule %s)...", c.cfg.Schedule)
	c.wg.Add(1)

	c.scheduler.StartAsync()

	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		c.logger.Info("Stopping chart refresh controller...")
		c.scheduler.Stop()
	}()

	return nil
}

// Latest returns the URL of the most recent chart, or "" before the first run
func (c *Controller) Latest() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

func (c *Controller) runJob() {
	if _, err := c.Refresh(c.ctx); err != nil {
		c.logger.Errorf("chart refresh failed: %v", err)
	}
}

// Refresh observes the configured location now and stores its chart
func (c *Controller) Refresh(ctx context.Context) (*observation.Result, error) {
	place, err := c.deps.Locator.Resolve(locator.Query{Name: c.cfg.Location})
	if err != nil {
		return nil, err
	}
	now, err := c.deps.Service.Instant("", "")
	if err != nil {
		return nil, err
	}

	if c.deps.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deps.RequestTimeout)
		defer cancel()
	}

	result, err := c.deps.Service.Observe(ctx, place, now)
	if err != nil {
		return nil, err
	}
	if err := c.deps.StoreChart(result); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.latest = result.ChartURL
	c.mu.Unlock()

	c.logger.Debugf("refreshed sky chart for %s: %s", place.Name, result.ChartURL)
	return result, nil
}
