// Package ephemeris defines the position source used by the sky computations
// and provides an implementation backed by the Meeus algorithms.
package ephemeris

import (
	"fmt"
	"time"

	"github.com/chrissnell/skywatch/pkg/celestial"
	"gonum.org/v1/gonum/spatial/r3"
)

// Frame selects the origin of position vectors.
type Frame int

const (
	// FrameGeocentricEcliptic is centered on the Earth, ecliptic and equinox of date, in AU.
	FrameGeocentricEcliptic Frame = iota
	// FrameHeliocentricEcliptic is centered on the Sun, ecliptic and equinox of date, in AU.
	FrameHeliocentricEcliptic
)

func (f Frame) String() string {
	switch f {
	case FrameGeocentricEcliptic:
		return "geocentric-ecliptic"
	case FrameHeliocentricEcliptic:
		return "heliocentric-ecliptic"
	default:
		return "unknown"
	}
}

// Ephemeris locates bodies. Implementations must be safe for concurrent use.
// Failures wrap celestial.ErrEphemerisUnavailable.
type Ephemeris interface {
	// PositionOf returns the position vector of body at t in the given frame.
	PositionOf(body celestial.Body, t time.Time, frame Frame) (r3.Vec, error)

	// ApparentAltAz returns the apparent altitude and azimuth of body in degrees
	// as seen by an observer at loc. Azimuth is measured clockwise from north.
	ApparentAltAz(body celestial.Body, loc celestial.GeoCoordinate, t time.Time) (altitude, azimuth float64, err error)
}

// Funcs adapts plain functions to the Ephemeris interface. It is mainly
// useful for driving the computations with synthetic positions.
type Funcs struct {
	Position func(body celestial.Body, t time.Time, frame Frame) (r3.Vec, error)
	AltAz    func(body celestial.Body, loc celestial.GeoCoordinate, t time.Time) (float64, float64, error)
}

// PositionOf calls f.Position
func (f Funcs) PositionOf(body celestial.Body, t time.Time, frame Frame) (r3.Vec, error) {
	if f.Position == nil {
		return r3.Vec{}, fmt.Errorf("%w: no position source for %v", celestial.ErrEphemerisUnavailable, body)
	}
	return f.Position(body, t, frame)
}

// ApparentAltAz calls f.AltAz
func (f Funcs) ApparentAltAz(body celestial.Body, loc celestial.GeoCoordinate, t time.Time) (float64, float64, error) {
	if f.AltAz == nil {
		return 0, 0, fmt.Errorf("%w: no alt/az source for %v", celestial.ErrEphemerisUnavailable, body)
	}
	return f.AltAz(body, loc, t)
}
