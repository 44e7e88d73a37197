// Package controllers holds what the service's controllers share.
package controllers

import (
	"fmt"
	"time"

	"github.com/chrissnell/skywatch/internal/locator"
	"github.com/chrissnell/skywatch/internal/metrics"
	"github.com/chrissnell/skywatch/internal/observation"
	"github.com/chrissnell/skywatch/internal/render"
)

// Deps are the services handed to every controller
type Deps struct {
	Service  *observation.Service
	Locator  *locator.Locator
	Renderer *render.PNG

	// Charts is nil when chart files are disabled
	Charts         *render.FileStore
	ChartURLPrefix string

	RequestTimeout time.Duration
}

// StoreChart renders the chart of result into the chart directory and sets
// result.ChartURL. It is a no-op when chart files are disabled.
func (d Deps) StoreChart(result *observation.Result) error {
	if d.Charts == nil {
		return nil
	}

	started := time.Now()
	name, err := d.Charts.Save(result.ID, result.Chart)
	if err != nil {
		metrics.ChartRendersTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("rendering chart %s: %w", result.ID, err)
	}
	metrics.ChartRendersTotal.WithLabelValues("ok").Inc()
	metrics.ChartRenderDurationMs.Observe(float64(time.Since(started).Microseconds()) / 1000)

	result.ChartURL = d.ChartURLPrefix + name
	return nil
}
