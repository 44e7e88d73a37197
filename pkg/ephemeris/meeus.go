package ephemeris

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chrissnell/skywatch/pkg/celestial"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/elliptic"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	pp "github.com/soniakeys/meeus/v3/planetposition"
	"github.com/soniakeys/meeus/v3/refraction"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// AUKm is the astronomical unit in kilometers
	AUKm = 149597870.7

	earthEquatorialRadiusKm = 6378.14

	// deltaT approximates TT-UT for the current era. The error this
	// introduces stays well under the two-decimal display precision.
	deltaT = 69 * time.Second

	// Refraction formulas diverge far below the horizon.
	refractionFloorDeg = -1.0
)

var vsopIndex = map[celestial.Body]int{
	celestial.Mercury: pp.Mercury,
	celestial.Venus:   pp.Venus,
	celestial.Earth:   pp.Earth,
	celestial.Mars:    pp.Mars,
	celestial.Jupiter: pp.Jupiter,
	celestial.Saturn:  pp.Saturn,
	celestial.Uranus:  pp.Uranus,
	celestial.Neptune: pp.Neptune,
}

// planetSlot lazily loads one VSOP87 series. After the first load the
// slot is read-only, which keeps Meeus safe for concurrent use.
type planetSlot struct {
	once   sync.Once
	index  int
	planet *pp.V87Planet
	err    error
}

// Meeus is an Ephemeris built on the algorithms of Jean Meeus. The Sun and
// Moon need no data files. Planets require the VSOP87B files; without them
// planet lookups fail with celestial.ErrEphemerisUnavailable.
type Meeus struct {
	vsopDir string
	minYear int
	maxYear int
	planets map[celestial.Body]*planetSlot
}

// Option configures a Meeus ephemeris
type Option func(*Meeus)

// WithVSOP87Dir sets the directory holding the VSOP87B.* files.
func WithVSOP87Dir(dir string) Option {
	return func(m *Meeus) {
		m.vsopDir = dir
	}
}

// WithEpochRange limits the supported instants to the given calendar years, inclusive.
func WithEpochRange(minYear, maxYear int) Option {
	return func(m *Meeus) {
		if minYear <= maxYear {
			m.minYear = minYear
			m.maxYear = maxYear
		}
	}
}

// NewMeeus creates a Meeus ephemeris. The default epoch range is 1900-2100.
func NewMeeus(opts ...Option) *Meeus {
	m := &Meeus{
		minYear: 1900,
		maxYear: 2100,
		planets: make(map[celestial.Body]*planetSlot, len(vsopIndex)),
	}
	for _, opt := range opts {
		opt(m)
	}
	for body, idx := range vsopIndex {
		m.planets[body] = &planetSlot{index: idx}
	}
	return m
}

func (m *Meeus) loadPlanet(body celestial.Body) (*pp.V87Planet, error) {
	slot, ok := m.planets[body]
	if !ok {
		return nil, fmt.Errorf("%w: %v has no VSOP87 series", celestial.ErrEphemerisUnavailable, body)
	}
	slot.once.Do(func() {
		if m.vsopDir == "" {
			slot.err = fmt.Errorf("%w: no VSOP87 directory configured for %v", celestial.ErrEphemerisUnavailable, body)
			return
		}
		slot.planet, slot.err = pp.LoadPlanetPath(slot.index, m.vsopDir)
		if slot.err != nil {
			slot.err = fmt.Errorf("%w: loading VSOP87 data for %v: %v", celestial.ErrEphemerisUnavailable, body, slot.err)
		}
	})
	return slot.planet, slot.err
}

func (m *Meeus) checkEpoch(t time.Time) error {
	y := t.UTC().Year()
	if y < m.minYear || y > m.maxYear {
		return fmt.Errorf("%w: %s outside supported years %d-%d",
			celestial.ErrEphemerisUnavailable, t.UTC().Format(time.RFC3339), m.minYear, m.maxYear)
	}
	return nil
}

// julianDays returns the UT and dynamical Julian days for t
func julianDays(t time.Time) (jd, jde float64) {
	jd = julian.TimeToJD(t.UTC())
	jde = jd + deltaT.Seconds()/86400.0
	return jd, jde
}

// PositionOf returns the position of body at t in AU.
func (m *Meeus) PositionOf(body celestial.Body, t time.Time, frame Frame) (r3.Vec, error) {
	if err := m.checkEpoch(t); err != nil {
		return r3.Vec{}, err
	}
	_, jde := julianDays(t)

	geo, err := m.geocentric(body, jde)
	if err != nil {
		return r3.Vec{}, err
	}

	switch frame {
	case FrameGeocentricEcliptic:
		return geo, nil
	case FrameHeliocentricEcliptic:
		sun, err := m.geocentric(celestial.Sun, jde)
		if err != nil {
			return r3.Vec{}, err
		}
		return r3.Sub(geo, sun), nil
	default:
		return r3.Vec{}, fmt.Errorf("%w: unsupported frame %v", celestial.ErrInvalidInput, frame)
	}
}

// geocentric returns the geometric geocentric ecliptic position of body in AU
func (m *Meeus) geocentric(body celestial.Body, jde float64) (r3.Vec, error) {
	switch body {
	case celestial.Earth:
		return r3.Vec{}, nil
	case celestial.Sun:
		T := base.J2000Century(jde)
		lon, _ := solar.True(T)
		return sphericalToVec(lon, 0, solar.Radius(T)), nil
	case celestial.Moon:
		lon, lat, distKm := moonposition.Position(jde)
		return sphericalToVec(lon, lat, distKm/AUKm), nil
	}

	planet, err := m.loadPlanet(body)
	if err != nil {
		return r3.Vec{}, err
	}
	earth, err := m.loadPlanet(celestial.Earth)
	if err != nil {
		return r3.Vec{}, err
	}
	pl, pb, pr := planet.Position(jde)
	el, eb, er := earth.Position(jde)
	return r3.Sub(sphericalToVec(pl, pb, pr), sphericalToVec(el, eb, er)), nil
}

// ApparentAltAz returns the topocentric apparent altitude and azimuth in degrees,
// refraction included.
func (m *Meeus) ApparentAltAz(body celestial.Body, loc celestial.GeoCoordinate, t time.Time) (float64, float64, error) {
	if body == celestial.Earth {
		return 0, 0, fmt.Errorf("%w: the Earth cannot be observed from its surface", celestial.ErrEphemerisUnavailable)
	}
	if err := m.checkEpoch(t); err != nil {
		return 0, 0, err
	}
	jd, jde := julianDays(t)

	var ra, dec float64
	switch body {
	case celestial.Sun:
		α, δ := solar.ApparentEquatorial(jde)
		ra, dec = α.Rad(), δ.Rad()
	case celestial.Moon:
		lon, lat, _ := moonposition.Position(jde)
		Δψ, Δε := nutation.Nutation(jde)
		ε := nutation.MeanObliquity(jde) + Δε
		ra, dec = eclipticToEquatorial(lon+Δψ, lat, ε)
	default:
		planet, err := m.loadPlanet(body)
		if err != nil {
			return 0, 0, err
		}
		earth, err := m.loadPlanet(celestial.Earth)
		if err != nil {
			return 0, 0, err
		}
		α, δ := elliptic.Position(planet, earth, jde)
		ra, dec = α.Rad(), δ.Rad()
	}

	gast := sidereal.Apparent(jd).Angle().Rad()
	alt, az := equatorialToHorizontal(ra, dec, loc, gast)

	if body == celestial.Moon {
		_, _, distKm := moonposition.Position(jde)
		// horizontal parallax lowers the Moon by up to about one degree
		hp := math.Asin(earthEquatorialRadiusKm / distKm)
		alt -= radToDeg(hp * math.Cos(degToRad(alt)))
	}

	if alt > refractionFloorDeg {
		alt += refraction.Saemundsson(unit.AngleFromDeg(alt)).Deg()
	}
	if alt > 90 {
		alt = 90
	}

	return alt, az, nil
}

// sphericalToVec converts ecliptic longitude, latitude and radius to a rectangular vector
func sphericalToVec(lon, lat unit.Angle, r float64) r3.Vec {
	sl, cl := math.Sincos(lon.Rad())
	sb, cb := math.Sincos(lat.Rad())
	return r3.Vec{X: r * cb * cl, Y: r * cb * sl, Z: r * sb}
}

// eclipticToEquatorial converts ecliptic coordinates to right ascension and
// declination, both in radians, given the obliquity of the ecliptic.
func eclipticToEquatorial(lon, lat, obliquity unit.Angle) (ra, dec float64) {
	sinLat, cosLat := math.Sincos(lat.Rad())
	sinLon, cosLon := math.Sincos(lon.Rad())
	sinEps, cosEps := math.Sincos(obliquity.Rad())

	dec = math.Asin(sinLat*cosEps + cosLat*sinEps*sinLon)

	y := sinLon*cosEps - (sinLat/cosLat)*sinEps
	ra = math.Atan2(y, cosLon)
	if ra < 0 {
		ra += 2 * math.Pi
	}
	return ra, dec
}

// equatorialToHorizontal returns altitude and azimuth in degrees. Azimuth is
// measured clockwise from north. gast is Greenwich apparent sidereal time in radians.
func equatorialToHorizontal(ra, dec float64, loc celestial.GeoCoordinate, gast float64) (alt, az float64) {
	phi := degToRad(loc.Latitude)
	H := gast + degToRad(loc.Longitude) - ra

	sinPhi, cosPhi := math.Sincos(phi)
	sinDec, cosDec := math.Sincos(dec)
	sinH, cosH := math.Sincos(H)

	sinAlt := sinPhi*sinDec + cosPhi*cosDec*cosH
	if sinAlt > 1 {
		sinAlt = 1
	} else if sinAlt < -1 {
		sinAlt = -1
	}
	alt = math.Asin(sinAlt)

	az = math.Atan2(-cosDec*sinH, sinDec*cosPhi-cosDec*cosH*sinPhi)
	if az < 0 {
		az += 2 * math.Pi
	}

	return radToDeg(alt), radToDeg(az)
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
