// Package celestial holds the data model shared by the sky computations:
// bodies, observer coordinates, horizon positions and rise/set events.
package celestial

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrInvalidInput is returned for malformed dates, times or coordinates.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEphemerisUnavailable is returned when the ephemeris has no data for a body at an instant.
	ErrEphemerisUnavailable = errors.New("ephemeris unavailable")

	// ErrNumericDomain is returned when a computation receives degenerate geometry.
	ErrNumericDomain = errors.New("numeric domain error")
)

// Body identifies a celestial object.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune

	// Earth is a reference body. It can be located but never observed.
	Earth
)

// Bodies lists the observable bodies in output order.
var Bodies = []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune}

var bodyNames = map[Body]string{
	Sun:     "Sun",
	Moon:    "Moon",
	Mercury: "Mercury",
	Venus:   "Venus",
	Mars:    "Mars",
	Jupiter: "Jupiter",
	Saturn:  "Saturn",
	Uranus:  "Uranus",
	Neptune: "Neptune",
	Earth:   "Earth",
}

var bodyColors = map[Body]string{
	Sun:     "#FDB813",
	Moon:    "#CCCCCC",
	Mercury: "#B1B1B1",
	Venus:   "#F7D358",
	Mars:    "#FF4500",
	Jupiter: "#FFA500",
	Saturn:  "#D2B48C",
	Uranus:  "#7FFFD4",
	Neptune: "#4169E1",
}

// String returns the display name of the body
func (b Body) String() string {
	if name, ok := bodyNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Body(%d)", int(b))
}

// Color returns the presentation color of the body as a hex string.
// Unknown bodies are drawn white.
func (b Body) Color() string {
	if c, ok := bodyColors[b]; ok {
		return c
	}
	return "#FFFFFF"
}

// ParseBody looks up a body by its display name, case-insensitively
func ParseBody(name string) (Body, error) {
	for b, n := range bodyNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown body %q", ErrInvalidInput, name)
}

// MarshalText renders the body by name so that JSON map keys and values stay readable.
func (b Body) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses a body name.
func (b *Body) UnmarshalText(text []byte) error {
	parsed, err := ParseBody(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// GeoCoordinate is an observer location in signed degrees.
type GeoCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewGeoCoordinate validates latitude in [-90,90] and longitude in [-180,180].
func NewGeoCoordinate(lat, lon float64) (GeoCoordinate, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return GeoCoordinate{}, fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidInput, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return GeoCoordinate{}, fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidInput, lon)
	}
	return GeoCoordinate{Latitude: lat, Longitude: lon}, nil
}

func (g GeoCoordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", g.Latitude, g.Longitude)
}

// HorizonPosition is the altitude and azimuth of a body seen from one place at one instant.
type HorizonPosition struct {
	Altitude float64 `json:"altitude"` // degrees, [-90,90]
	Azimuth  float64 `json:"azimuth"`  // degrees clockwise from north, [0,360)
}

// AboveHorizon reports whether the body is visible. Altitude of exactly zero counts as below.
func (p HorizonPosition) AboveHorizon() bool {
	return p.Altitude > 0
}

// EventKind distinguishes rising from setting.
type EventKind int

const (
	Rise EventKind = iota
	Set
)

func (k EventKind) String() string {
	switch k {
	case Rise:
		return "rise"
	case Set:
		return "set"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses "rise" or "set".
func (k *EventKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "rise":
		*k = Rise
	case "set":
		*k = Set
	default:
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidInput, text)
	}
	return nil
}

// RiseSetEvent is one horizon crossing of a body.
type RiseSetEvent struct {
	Body Body      `json:"body"`
	Kind EventKind `json:"kind"`
	Time time.Time `json:"time"`
}
