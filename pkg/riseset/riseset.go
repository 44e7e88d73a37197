// Package riseset finds the instants at which a body crosses the horizon.
//
// The search only needs altitude as a function of time. It samples the
// window on an even grid, brackets every sign change between neighbouring
// samples and refines each bracket by bisection.
package riseset

import (
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/skywatch/pkg/celestial"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultSampleCount gives five-minute resolution over a day
	DefaultSampleCount = 288

	// DefaultTolerance is the width below which a bracket counts as refined
	DefaultTolerance = time.Second

	// DefaultMaxIterations caps bisection steps per crossing
	DefaultMaxIterations = 64
)

// AltitudeFunc returns altitude in degrees at t.
type AltitudeFunc func(t time.Time) (float64, error)

// AltitudeSource supplies apparent altitudes for a body seen from a location.
// Any ephemeris.Ephemeris satisfies it.
type AltitudeSource interface {
	ApparentAltAz(body celestial.Body, loc celestial.GeoCoordinate, t time.Time) (float64, float64, error)
}

// Crossing is a refined horizon crossing.
type Crossing struct {
	Kind celestial.EventKind
	Time time.Time
}

// Finder locates rise and set events. A Finder is safe for concurrent use.
type Finder struct {
	source        AltitudeSource
	tolerance     time.Duration
	maxIterations int
}

// Option configures a Finder
type Option func(*Finder)

// WithTolerance sets the refined bracket width.
func WithTolerance(d time.Duration) Option {
	return func(f *Finder) {
		if d > 0 {
			f.tolerance = d
		}
	}
}

// WithMaxIterations caps the bisection steps for each crossing.
func WithMaxIterations(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.maxIterations = n
		}
	}
}

// NewFinder creates a Finder reading altitudes from source.
func NewFinder(source AltitudeSource, opts ...Option) *Finder {
	f := &Finder{
		source:        source,
		tolerance:     DefaultTolerance,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Tolerance returns the configured time tolerance
func (f *Finder) Tolerance() time.Duration {
	return f.tolerance
}

// FindCrossings returns the rise and set events of body seen from loc in the
// half-open window [start, end), ordered by time. A body that never changes
// sign in the window yields no events. Any ephemeris failure fails the whole
// search with an error wrapping celestial.ErrEphemerisUnavailable.
func (f *Finder) FindCrossings(body celestial.Body, loc celestial.GeoCoordinate, start, end time.Time, sampleCount int) ([]celestial.RiseSetEvent, error) {
	altitude := func(t time.Time) (float64, error) {
		alt, _, err := f.source.ApparentAltAz(body, loc, t)
		return alt, err
	}

	crossings, err := Search(altitude, start, end, sampleCount, f.tolerance, f.maxIterations)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", body, err)
	}

	events := make([]celestial.RiseSetEvent, 0, len(crossings))
	for _, c := range crossings {
		events = append(events, celestial.RiseSetEvent{Body: body, Kind: c.Kind, Time: c.Time})
	}
	return events, nil
}

// Search scans [start, end) for sign changes of altitude and refines each one.
// sampleCount must be at least 2 and end must be after start.
func Search(altitude AltitudeFunc, start, end time.Time, sampleCount int, tolerance time.Duration, maxIterations int) ([]Crossing, error) {
	if sampleCount < 2 {
		return nil, fmt.Errorf("%w: sample count %d is below 2", celestial.ErrInvalidInput, sampleCount)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: window end %v is not after start %v", celestial.ErrInvalidInput, end, start)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	span := end.Sub(start)
	offsets := floats.Span(make([]float64, sampleCount), 0, float64(span))

	sample := func(t time.Time) (bool, error) {
		alt, err := altitude(t)
		if err != nil {
			return false, fmt.Errorf("%w: altitude at %s: %v", celestial.ErrEphemerisUnavailable, t.UTC().Format(time.RFC3339), err)
		}
		if math.IsNaN(alt) {
			return false, fmt.Errorf("%w: altitude at %s is NaN", celestial.ErrEphemerisUnavailable, t.UTC().Format(time.RFC3339))
		}
		return alt > 0, nil
	}

	times := make([]time.Time, sampleCount)
	above := make([]bool, sampleCount)
	for i, off := range offsets {
		times[i] = start.Add(time.Duration(math.Round(off)))
		up, err := sample(times[i])
		if err != nil {
			return nil, err
		}
		above[i] = up
	}

	var crossings []Crossing
	for i := 1; i < sampleCount; i++ {
		if above[i-1] == above[i] {
			continue
		}

		t, err := bisect(sample, times[i-1], times[i], above[i-1], tolerance, maxIterations)
		if err != nil {
			return nil, err
		}
		if !t.Before(end) {
			continue
		}

		kind := celestial.Rise
		if above[i-1] {
			kind = celestial.Set
		}

		if n := len(crossings); n > 0 && t.Sub(crossings[n-1].Time) <= tolerance {
			continue
		}
		crossings = append(crossings, Crossing{Kind: kind, Time: t})
	}

	return crossings, nil
}

// bisect narrows [lo, hi] around the sign change and returns its midpoint.
// loAbove is the state at lo; the state at hi is its opposite.
func bisect(sample func(time.Time) (bool, error), lo, hi time.Time, loAbove bool, tolerance time.Duration, maxIterations int) (time.Time, error) {
	for i := 0; i < maxIterations && hi.Sub(lo) > tolerance; i++ {
		mid := lo.Add(hi.Sub(lo) / 2)
		up, err := sample(mid)
		if err != nil {
			return time.Time{}, err
		}
		if up == loAbove {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo.Add(hi.Sub(lo) / 2), nil
}
