package locator

import (
	"fmt"
	"net"

	"github.com/chrissnell/skywatch/pkg/celestial"
	"github.com/oschwald/geoip2-golang"
)

// GeoIP looks addresses up in a MaxMind City database
type GeoIP struct {
	db *geoip2.Reader
}

// OpenGeoIP opens a GeoLite2/GeoIP2 City database file
func OpenGeoIP(path string) (*GeoIP, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database %s: %w", path, err)
	}
	return &GeoIP{db: db}, nil
}

// Lookup returns the approximate coordinates of ip
func (g *GeoIP) Lookup(ip net.IP) (celestial.GeoCoordinate, error) {
	rec, err := g.db.City(ip)
	if err != nil {
		return celestial.GeoCoordinate{}, fmt.Errorf("geoip lookup: %w", err)
	}
	// unknown addresses come back as 0,0 with no accuracy radius
	if rec.Location.AccuracyRadius == 0 && rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return celestial.GeoCoordinate{}, fmt.Errorf("no location for %v", ip)
	}
	return celestial.NewGeoCoordinate(rec.Location.Latitude, rec.Location.Longitude)
}

// Close releases the database
func (g *GeoIP) Close() error {
	return g.db.Close()
}
