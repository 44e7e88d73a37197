// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ObservationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_observations_total",
		Help: "Observation requests by outcome",
	}, []string{"outcome"})
	ObservationDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skywatch_observation_duration_ms",
		Help:    "Time to compute one observation in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	BodyUnavailableTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_body_unavailable_total",
		Help: "Bodies whose events or position could not be computed",
	}, []string{"body"})
	EventsFoundTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_events_found_total",
		Help: "Rise and set events found",
	}, []string{"body", "kind"})
	ChartRendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_chart_renders_total",
		Help: "Chart renders by outcome",
	}, []string{"outcome"})
	ChartRenderDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skywatch_chart_render_duration_ms",
		Help:    "Chart render duration in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skywatch_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
)

func init() {
	prometheus.MustRegister(ObservationsTotal)
	prometheus.MustRegister(ObservationDurationMs)
	prometheus.MustRegister(BodyUnavailableTotal)
	prometheus.MustRegister(EventsFoundTotal)
	prometheus.MustRegister(ChartRendersTotal)
	prometheus.MustRegister(ChartRenderDurationMs)
	prometheus.MustRegister(HTTPRequestsTotal)
}

// Handler exposes the registered collectors for scraping
func Handler() http.Handler { return promhttp.Handler() }
