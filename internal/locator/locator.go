// Package locator resolves the observer location of a request: a named
// preset, raw coordinates, or a GeoIP lookup of the client address.
package locator

import (
	"fmt"
	"net"
	"strings"

	"github.com/chrissnell/skywatch/pkg/celestial"
	"go.uber.org/zap"
)

// Special location names
const (
	MyLocation = "my-location"
	Auto       = "auto"
)

// Place is a named observer location
type Place struct {
	Name       string                  `json:"name" yaml:"name"`
	Coordinate celestial.GeoCoordinate `json:"coordinate" yaml:"coordinate"`
}

// Query carries the location fields of a request
type Query struct {
	Name      string
	Latitude  string
	Longitude string
	RemoteIP  net.IP
}

// GeoLookup maps an IP address to coordinates
type GeoLookup interface {
	Lookup(ip net.IP) (celestial.GeoCoordinate, error)
}

// Locator resolves queries against a fixed preset list. It is read-only
// after construction and safe for concurrent use.
type Locator struct {
	presets     []Place
	byKey       map[string]Place
	defaultName string
	geo         GeoLookup
	logger      *zap.SugaredLogger
}

// Option configures a Locator
type Option func(*Locator)

// WithGeoLookup enables the "auto" location
func WithGeoLookup(g GeoLookup) Option {
	return func(l *Locator) {
		l.geo = g
	}
}

// WithLogger sets the logger used for fallbacks
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(l *Locator) {
		l.logger = logger
	}
}

// New creates a Locator. defaultName must name one of presets.
func New(presets []Place, defaultName string, opts ...Option) (*Locator, error) {
	l := &Locator{
		byKey:  make(map[string]Place, len(presets)),
		logger: zap.NewNop().Sugar(),
	}
	for _, p := range presets {
		if _, err := celestial.NewGeoCoordinate(p.Coordinate.Latitude, p.Coordinate.Longitude); err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		k := key(p.Name)
		if k == "" {
			return nil, fmt.Errorf("%w: preset with empty name", celestial.ErrInvalidInput)
		}
		if _, dup := l.byKey[k]; dup {
			return nil, fmt.Errorf("%w: duplicate preset %q", celestial.ErrInvalidInput, p.Name)
		}
		l.byKey[k] = p
		l.presets = append(l.presets, p)
	}

	def, ok := l.byKey[key(defaultName)]
	if !ok {
		return nil, fmt.Errorf("%w: default location %q is not a preset", celestial.ErrInvalidInput, defaultName)
	}
	l.defaultName = def.Name

	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Presets returns the configured presets in their configured order
func (l *Locator) Presets() []Place {
	out := make([]Place, len(l.presets))
	copy(out, l.presets)
	return out
}

// Default returns the default preset
func (l *Locator) Default() Place {
	return l.byKey[key(l.defaultName)]
}

// Resolve turns a query into a place. Raw coordinates are used when given,
// either with the "my-location" name or with no name at all. Unknown
// names fall back to the default preset. Malformed coordinates fail with
// celestial.ErrInvalidInput.
func (l *Locator) Resolve(q Query) (Place, error) {
	name := key(q.Name)
	hasCoords := strings.TrimSpace(q.Latitude) != "" || strings.TrimSpace(q.Longitude) != ""

	switch {
	case name == MyLocation || (name == "" && hasCoords):
		c, err := ParseCoordinates(q.Latitude, q.Longitude)
		if err != nil {
			return Place{}, err
		}
		return Place{Name: "My Location", Coordinate: c}, nil

	case name == Auto:
		return l.locateIP(q.RemoteIP), nil

	case name == "":
		return l.Default(), nil
	}

	if p, ok := l.byKey[name]; ok {
		return p, nil
	}
	l.logger.Warnf("unknown location %q, using %s", q.Name, l.defaultName)
	return l.Default(), nil
}

func (l *Locator) locateIP(ip net.IP) Place {
	if l.geo == nil || ip == nil {
		return l.Default()
	}
	c, err := l.geo.Lookup(ip)
	if err != nil {
		l.logger.Warnf("geoip lookup for %v failed, using %s: %v", ip, l.defaultName, err)
		return l.Default()
	}
	return Place{Name: "Near " + ip.String(), Coordinate: c}
}

// key normalizes a location name: case-insensitive, spaces and underscores as dashes
func key(name string) string {
	k := strings.ToLower(strings.TrimSpace(name))
	k = strings.ReplaceAll(k, "_", "-")
	return strings.Join(strings.Fields(k), "-")
}
