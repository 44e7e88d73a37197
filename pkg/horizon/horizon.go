// Package horizon turns raw apparent positions into the horizon coordinates
// shown to users: rounded to display precision, azimuth normalized into
// [0,360) and altitude kept within [-90,90].
package horizon

import (
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/skywatch/pkg/celestial"
)

// DisplayDecimals is the number of decimal places kept for altitude and azimuth
const DisplayDecimals = 2

// Source supplies apparent topocentric positions in degrees.
type Source interface {
	ApparentAltAz(body celestial.Body, loc celestial.GeoCoordinate, t time.Time) (float64, float64, error)
}

// Observe returns the horizon position of body seen from loc at t.
// Ephemeris failures and non-finite results wrap celestial.ErrEphemerisUnavailable.
func Observe(src Source, body celestial.Body, loc celestial.GeoCoordinate, t time.Time) (celestial.HorizonPosition, error) {
	alt, az, err := src.ApparentAltAz(body, loc, t)
	if err != nil {
		return celestial.HorizonPosition{}, fmt.Errorf("observing %v: %w", body, err)
	}
	if !finite(alt) || !finite(az) {
		return celestial.HorizonPosition{}, fmt.Errorf("%w: %v has non-finite position alt=%v az=%v",
			celestial.ErrEphemerisUnavailable, body, alt, az)
	}
	return Normalize(alt, az), nil
}

// Normalize rounds alt and az to display precision, clamps altitude to
// [-90,90] and wraps azimuth into [0,360). An azimuth that rounds up to 360
// is reported as 0.
func Normalize(alt, az float64) celestial.HorizonPosition {
	alt = Round(clamp(alt, -90, 90), DisplayDecimals)
	az = Round(NormalizeAzimuth(az), DisplayDecimals)
	if az >= 360 {
		az = 0
	}
	return celestial.HorizonPosition{Altitude: alt, Azimuth: az}
}

// NormalizeAzimuth wraps an angle in degrees to [0, 360)
func NormalizeAzimuth(az float64) float64 {
	az = math.Mod(az, 360)
	if az < 0 {
		az += 360
	}
	// -1e-15 + 360 rounds to 360 in float64
	if az >= 360 {
		az = 0
	}
	return az
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	r := math.Round(v*p) / p
	if r == 0 {
		// drop negative zero so it never prints as -0.00
		return 0
	}
	return r
}

// Visible filters positions down to the bodies above the horizon, keeping the order of bodies.
func Visible(bodies []celestial.Body, positions map[celestial.Body]celestial.HorizonPosition) []celestial.Body {
	var visible []celestial.Body
	for _, b := range bodies {
		if p, ok := positions[b]; ok && p.AboveHorizon() {
			visible = append(visible, b)
		}
	}
	return visible
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
