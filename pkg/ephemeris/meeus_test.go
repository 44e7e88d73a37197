package ephemeris

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/skywatch/pkg/celestial"
	"gonum.org/v1/gonum/spatial/r3"
)

var muscat = celestial.GeoCoordinate{Latitude: 23.588, Longitude: 58.3829}

func TestSunAltAz(t *testing.T) {
	eph := NewMeeus()

	tests := []struct {
		name   string
		time   time.Time
		altMin float64
		altMax float64
		azMin  float64
		azMax  float64
	}{
		{
			// Local solar noon in Muscat is about 08:05 UTC; winter solstice sun
			// culminates at 90 - 23.6 - 23.4 = 43 degrees due south.
			name:   "Muscat noon winter solstice",
			time:   time.Date(2024, 12, 21, 8, 5, 0, 0, time.UTC),
			altMin: 41, altMax: 45,
			azMin: 175, azMax: 185,
		},
		{
			name:   "Muscat local midnight",
			time:   time.Date(2024, 12, 21, 20, 5, 0, 0, time.UTC),
			altMin: -90, altMax: -40,
			azMin: 0, azMax: 360,
		},
		{
			// Equinox sunrise rises close to due east
			name:   "Muscat equinox morning",
			time:   time.Date(2024, 3, 20, 3, 0, 0, 0, time.UTC),
			altMin: 0, altMax: 15,
			azMin: 80, azMax: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alt, az, err := eph.ApparentAltAz(celestial.Sun, muscat, tt.time)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if alt < tt.altMin || alt > tt.altMax {
				t.Errorf("altitude = %.2f, expected in [%.1f, %.1f]", alt, tt.altMin, tt.altMax)
			}
			if az < tt.azMin || az > tt.azMax {
				t.Errorf("azimuth = %.2f, expected in [%.1f, %.1f]", az, tt.azMin, tt.azMax)
			}
		})
	}
}

func TestMoonDistance(t *testing.T) {
	eph := NewMeeus()
	for day := 0; day < 30; day++ {
		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
		v, err := eph.PositionOf(celestial.Moon, ts, FrameGeocentricEcliptic)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		km := r3.Norm(v) * AUKm
		if km < 356000 || km > 407000 {
			t.Errorf("day %d: moon distance %.0f km outside [356000, 407000]", day, km)
		}
	}
}

func TestHeliocentricEarth(t *testing.T) {
	eph := NewMeeus()
	ts := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

	earth, err := eph.PositionOf(celestial.Earth, ts, FrameHeliocentricEcliptic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sun, err := eph.PositionOf(celestial.Sun, ts, FrameGeocentricEcliptic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d := r3.Norm(r3.Add(earth, sun)); d > 1e-12 {
		t.Errorf("heliocentric earth should mirror geocentric sun, residual %g", d)
	}
	// aphelion is early July
	if r := r3.Norm(earth); math.Abs(r-1.0167) > 0.001 {
		t.Errorf("sun distance = %.4f AU, expected ~1.0167", r)
	}
}

func TestPlanetWithoutVSOP87(t *testing.T) {
	eph := NewMeeus()
	ts := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

	if _, _, err := eph.ApparentAltAz(celestial.Jupiter, muscat, ts); !errors.Is(err, celestial.ErrEphemerisUnavailable) {
		t.Errorf("expected ErrEphemerisUnavailable, got %v", err)
	}
	if _, err := eph.PositionOf(celestial.Mars, ts, FrameGeocentricEcliptic); !errors.Is(err, celestial.ErrEphemerisUnavailable) {
		t.Errorf("expected ErrEphemerisUnavailable, got %v", err)
	}
}

func TestPlanetWithMissingVSOP87Dir(t *testing.T) {
	eph := NewMeeus(WithVSOP87Dir(t.TempDir()))
	ts := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)

	_, _, err := eph.ApparentAltAz(celestial.Saturn, muscat, ts)
	if !errors.Is(err, celestial.ErrEphemerisUnavailable) {
		t.Errorf("expected ErrEphemerisUnavailable, got %v", err)
	}
}

func TestEpochRange(t *testing.T) {
	eph := NewMeeus(WithEpochRange(2000, 2050))

	if _, _, err := eph.ApparentAltAz(celestial.Sun, muscat, time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)); !errors.Is(err, celestial.ErrEphemerisUnavailable) {
		t.Errorf("expected ErrEphemerisUnavailable before range, got %v", err)
	}
	if _, err := eph.PositionOf(celestial.Moon, time.Date(2051, 1, 1, 0, 0, 0, 0, time.UTC), FrameGeocentricEcliptic); !errors.Is(err, celestial.ErrEphemerisUnavailable) {
		t.Errorf("expected ErrEphemerisUnavailable after range, got %v", err)
	}
	if _, _, err := eph.ApparentAltAz(celestial.Sun, muscat, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Errorf("unexpected error inside range: %v", err)
	}
}

func TestEarthNotObservable(t *testing.T) {
	eph := NewMeeus()
	_, _, err := eph.ApparentAltAz(celestial.Earth, muscat, time.Now())
	if !errors.Is(err, celestial.ErrEphemerisUnavailable) {
		t.Errorf("expected ErrEphemerisUnavailable, got %v", err)
	}
}

func TestEquatorialToHorizontal(t *testing.T) {
	// An object on the meridian at declination equal to the latitude is at the zenith
	loc := celestial.GeoCoordinate{Latitude: 30, Longitude: 0}
	alt, _ := equatorialToHorizontal(1.0, degToRad(30), loc, 1.0)
	if math.Abs(alt-90) > 1e-5 {
		t.Errorf("altitude = %.9f, expected 90", alt)
	}

	// Hour angle of +90 degrees on the equator sets due west
	alt, az := equatorialToHorizontal(0, 0, celestial.GeoCoordinate{}, math.Pi/2)
	if math.Abs(alt) > 1e-9 {
		t.Errorf("altitude = %.9f, expected 0", alt)
	}
	if math.Abs(az-270) > 1e-9 {
		t.Errorf("azimuth = %.9f, expected 270", az)
	}
}
