// Package lunar computes the phase of the Moon from the positions of the
// Sun, Moon and Earth. The phase angle is the Sun-Moon-Earth angle measured
// at the Moon: 0 when the Moon is full, π when it is new.
package lunar

import (
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/skywatch/pkg/celestial"
	"github.com/chrissnell/skywatch/pkg/ephemeris"
	"gonum.org/v1/gonum/spatial/r3"
)

// SynodicMonth is the average length of the lunar cycle in days
const SynodicMonth = 29.530588853

// Phase names
const (
	NewMoon        = "New Moon"
	WaxingCrescent = "Waxing Crescent"
	FirstQuarter   = "First Quarter"
	WaxingGibbous  = "Waxing Gibbous"
	FullMoon       = "Full Moon"
	WaningGibbous  = "Waning Gibbous"
	LastQuarter    = "Last Quarter"
	WaningCrescent = "Waning Crescent"
	Unknown        = "Unknown"
)

// degenerateLength is the vector length in AU below which two bodies are
// treated as coincident.
const degenerateLength = 1e-12

// phaseBins maps the phase angle in degrees to a name. Each bin covers
// [Upper of the previous bin, Upper); the last bin is closed at 180.
var phaseBins = []struct {
	Upper float64
	Name  string
}{
	{10, FullMoon},
	{45, WaxingGibbous},
	{55, FirstQuarter},
	{85, WaxingCrescent},
	{95, FullMoon},
	{125, WaningCrescent},
	{135, LastQuarter},
	{170, WaningGibbous},
	{180, NewMoon},
}

// MoonPhase contains calculated moon phase information
type MoonPhase struct {
	PhaseAngle    float64 // Sun-Moon-Earth angle in radians [0,π]
	Illumination  float64 // Illuminated fraction [0,1]: 0=new, 1=full
	PhaseName     string  // Human-readable phase name
	Elongation    float64 // Moon minus Sun ecliptic longitude seen from Earth, degrees [0,360)
	AgeDays       float64 // Approximate days since new moon [0,SynodicMonth)
	IsWaxing      bool    // True when moon is waxing (getting fuller)
	Indeterminate bool    // True when the geometry was degenerate
}

// PhaseAngleDegrees returns the phase angle in degrees
func (p MoonPhase) PhaseAngleDegrees() float64 {
	return radToDeg(p.PhaseAngle)
}

// PositionSource provides body positions in a common frame.
type PositionSource interface {
	PositionOf(body celestial.Body, t time.Time, frame ephemeris.Frame) (r3.Vec, error)
}

// Calculate computes the moon phase at t from geocentric ecliptic positions
// supplied by src.
func Calculate(src PositionSource, t time.Time) (MoonPhase, error) {
	var pos [3]r3.Vec
	for i, body := range []celestial.Body{celestial.Sun, celestial.Moon, celestial.Earth} {
		v, err := src.PositionOf(body, t, ephemeris.FrameGeocentricEcliptic)
		if err != nil {
			return MoonPhase{}, fmt.Errorf("moon phase at %s: %w", t.UTC().Format(time.RFC3339), err)
		}
		pos[i] = v
	}
	return FromVectors(pos[0], pos[1], pos[2]), nil
}

// FromVectors computes the moon phase from Sun, Moon and Earth positions
// taken in the same frame at the same instant. Degenerate geometry never
// fails: the result is flagged Indeterminate and named Unknown.
//
// Elongation, age and the waxing flag assume an ecliptic frame.
func FromVectors(sun, moon, earth r3.Vec) MoonPhase {
	angle, err := PhaseAngle(sun, moon, earth)
	if err != nil {
		return MoonPhase{PhaseName: Unknown, Indeterminate: true}
	}

	elongation := elongation(r3.Sub(sun, earth), r3.Sub(moon, earth))
	return MoonPhase{
		PhaseAngle:   angle,
		Illumination: IlluminatedFraction(angle),
		PhaseName:    ClassifyPhase(radToDeg(angle)),
		Elongation:   elongation,
		AgeDays:      elongation / 360.0 * SynodicMonth,
		IsWaxing:     elongation < 180,
	}
}

// PhaseAngle returns the Sun-Moon-Earth angle in radians. It fails with
// celestial.ErrNumericDomain when the Moon coincides with the Sun or the Earth.
func PhaseAngle(sun, moon, earth r3.Vec) (float64, error) {
	toSun := r3.Sub(sun, moon)
	toEarth := r3.Sub(earth, moon)

	n1, n2 := r3.Norm(toSun), r3.Norm(toEarth)
	if !(n1 > degenerateLength) || !(n2 > degenerateLength) {
		return 0, fmt.Errorf("%w: zero-length vector in phase angle (|moon-sun|=%g, |moon-earth|=%g)",
			celestial.ErrNumericDomain, n1, n2)
	}

	return angleFromCos(r3.Dot(toSun, toEarth) / (n1 * n2)), nil
}

// angleFromCos returns acos(c) with c clamped to [-1,1]; floating point
// overshoot would otherwise produce NaN.
func angleFromCos(c float64) float64 {
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// IlluminatedFraction returns (1 + cos(phaseAngle)) / 2.
func IlluminatedFraction(phaseAngle float64) float64 {
	return (1 + math.Cos(phaseAngle)) / 2
}

// ClassifyPhase names the phase for a phase angle in degrees.
// Angles outside [0,180] are Unknown.
func ClassifyPhase(deg float64) string {
	if math.IsNaN(deg) || deg < 0 || deg > 180 {
		return Unknown
	}
	for _, bin := range phaseBins {
		if deg < bin.Upper {
			return bin.Name
		}
	}
	return NewMoon
}

// elongation is the ecliptic longitude of the Moon minus that of the Sun, in [0,360)
func elongation(sunGeo, moonGeo r3.Vec) float64 {
	lambdaSun := math.Atan2(sunGeo.Y, sunGeo.X)
	lambdaMoon := math.Atan2(moonGeo.Y, moonGeo.X)
	return normalizeAngle(radToDeg(lambdaMoon - lambdaSun))
}

// normalizeAngle wraps an angle to the range [0, 360)
func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	if angle >= 360 {
		angle = 0
	}
	return angle
}

func radToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
