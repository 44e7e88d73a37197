// Package observation computes what the sky looks like for one observer at
// one instant: positions and rise/set events of every body over the local
// day, the Moon's phase and the sky chart.
package observation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/skywatch/internal/locator"
	"github.com/chrissnell/skywatch/internal/metrics"
	"github.com/chrissnell/skywatch/pkg/celestial"
	"github.com/chrissnell/skywatch/pkg/ephemeris"
	"github.com/chrissnell/skywatch/pkg/horizon"
	"github.com/chrissnell/skywatch/pkg/lunar"
	"github.com/chrissnell/skywatch/pkg/riseset"
	"github.com/chrissnell/skywatch/pkg/skychart"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LocalTimeLayout is how the observation instant is shown to users
const LocalTimeLayout = "2006-01-02 3:04 PM"

// Service composes the event finder, horizon positions, phase calculator and
// sky projector. It is safe for concurrent use; the only shared state is the
// read-only ephemeris.
type Service struct {
	eph         ephemeris.Ephemeris
	finder      *riseset.Finder
	tz          *time.Location
	sampleCount int
	workers     int
	bodies      []celestial.Body
	now         func() time.Time
	logger      *zap.SugaredLogger
}

// Option configures a Service
type Option func(*Service)

// WithTimezone sets the civil time zone used for the local day and for formatting
func WithTimezone(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.tz = loc
		}
	}
}

// WithSampleCount sets how many altitude samples the event search takes per day
func WithSampleCount(n int) Option {
	return func(s *Service) {
		if n >= 2 {
			s.sampleCount = n
		}
	}
}

// WithWorkers bounds how many bodies are computed concurrently
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithFinderOptions passes options through to the event finder
func WithFinderOptions(opts ...riseset.Option) Option {
	return func(s *Service) {
		s.finder = riseset.NewFinder(s.eph, opts...)
	}
}

// WithBodies restricts the observed bodies
func WithBodies(bodies ...celestial.Body) Option {
	return func(s *Service) {
		s.bodies = bodies
	}
}

// WithClock overrides the current time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service reading positions from eph
func NewService(eph ephemeris.Ephemeris, opts ...Option) *Service {
	s := &Service{
		eph:         eph,
		finder:      riseset.NewFinder(eph),
		tz:          time.UTC,
		sampleCount: riseset.DefaultSampleCount,
		workers:     len(celestial.Bodies),
		bodies:      celestial.Bodies,
		now:         time.Now,
		logger:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timezone returns the civil time zone of the service
func (s *Service) Timezone() *time.Location {
	return s.tz
}

// Instant parses a YYYY-MM-DD date and HH:MM time in the service's time
// zone. Missing parts default to now.
func (s *Service) Instant(date, clock string) (time.Time, error) {
	return horizon.ParseLocalInstant(date, clock, s.now(), s.tz)
}

// Observe computes the full result for place at instant. Only invalid input
// and cancellation fail the call; a body the ephemeris cannot handle is
// reported as unavailable.
func (s *Service) Observe(ctx context.Context, place locator.Place, instant time.Time) (*Result, error) {
	started := time.Now()

	result, err := s.observe(ctx, place, instant)
	if err != nil {
		outcome := "error"
		if errors.Is(err, celestial.ErrInvalidInput) {
			outcome = "invalid"
		}
		metrics.ObservationsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}

	metrics.ObservationsTotal.WithLabelValues("ok").Inc()
	metrics.ObservationDurationMs.Observe(float64(time.Since(started).Microseconds()) / 1000)
	return result, nil
}

func (s *Service) observe(ctx context.Context, place locator.Place, instant time.Time) (*Result, error) {
	loc, err := celestial.NewGeoCoordinate(place.Coordinate.Latitude, place.Coordinate.Longitude)
	if err != nil {
		return nil, err
	}
	if instant.IsZero() {
		return nil, fmt.Errorf("%w: missing observation instant", celestial.ErrInvalidInput)
	}

	start, end := horizon.LocalDay(instant, s.tz)
	reports := make([]BodyReport, len(s.bodies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, body := range s.bodies {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = s.observeBody(body, loc, instant, start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	moon := s.moonReport(instant)

	var placements []skychart.Placement
	var visible []celestial.Body
	for _, r := range reports {
		if r.Position == nil {
			continue
		}
		placements = append(placements, skychart.Placement{Body: r.Body, Position: *r.Position})
		if r.Visible {
			visible = append(visible, r.Body)
		}
	}

	local := instant.In(s.tz)
	return &Result{
		ID:        uuid.NewString(),
		Location:  locator.Place{Name: place.Name, Coordinate: loc},
		Instant:   instant.UTC(),
		LocalTime: local.Format(LocalTimeLayout),
		UTCOffset: local.Format("-07:00"),
		Window:    Window{Start: start, End: end},
		Bodies:    reports,
		Visible:   visible,
		Moon:      moon,
		Chart:     skychart.Project(placements),
	}, nil
}

// observeBody never fails; problems are recorded on the report
func (s *Service) observeBody(body celestial.Body, loc celestial.GeoCoordinate, instant, start, end time.Time) BodyReport {
	report := BodyReport{Body: body, Color: body.Color(), Events: []Event{}}

	pos, err := horizon.Observe(s.eph, body, loc, instant)
	if err != nil {
		s.logger.Warnf("position of %v unavailable: %v", body, err)
		report.Errors = append(report.Errors, err.Error())
	} else {
		report.Position = &pos
		report.Visible = pos.AboveHorizon()
	}

	events, err := s.finder.FindCrossings(body, loc, start, end, s.sampleCount)
	if err != nil {
		s.logger.Warnf("events of %v unavailable: %v", body, err)
		report.Errors = append(report.Errors, err.Error())
	} else {
		report.EventsAvailable = true
		for _, ev := range events {
			e := Event{Kind: ev.Kind, Time: ev.Time.UTC(), Local: horizon.FormatEventTime(ev.Time, s.tz)}
			report.Events = append(report.Events, e)
			if ev.Kind == celestial.Rise && report.Rise == "" {
				report.Rise = e.Local
			}
			if ev.Kind == celestial.Set && report.Set == "" {
				report.Set = e.Local
			}
			metrics.EventsFoundTotal.WithLabelValues(body.String(), ev.Kind.String()).Inc()
		}
	}

	if report.Unavailable() {
		metrics.BodyUnavailableTotal.WithLabelValues(body.String()).Inc()
	}
	return report
}

// Moon returns the Moon phase at instant
func (s *Service) Moon(instant time.Time) MoonReport {
	return s.moonReport(instant)
}

func (s *Service) moonReport(instant time.Time) MoonReport {
	phase, err := lunar.Calculate(s.eph, instant)
	if err != nil {
		s.logger.Warnf("moon phase unavailable: %v", err)
		return MoonReport{PhaseName: lunar.Unknown, Indeterminate: true}
	}
	if phase.Indeterminate {
		s.logger.Warnf("moon phase indeterminate at %v", instant.UTC())
	}
	return MoonReport{
		Illumination:      horizon.Round(phase.Illumination, 4),
		PhaseAngleRadians: horizon.Round(phase.PhaseAngle, 4),
		PhaseAngleDegrees: horizon.Round(phase.PhaseAngleDegrees(), 2),
		PhaseName:         phase.PhaseName,
		Elongation:        horizon.Round(phase.Elongation, 2),
		AgeDays:           horizon.Round(phase.AgeDays, 2),
		IsWaxing:          phase.IsWaxing,
		Indeterminate:     phase.Indeterminate,
	}
}
