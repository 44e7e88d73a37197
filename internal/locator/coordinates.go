package locator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chrissnell/skywatch/pkg/celestial"
)

// ParseCoordinates parses a latitude and longitude pair. Each value is
// either signed decimal degrees ("-33.9") or degrees with a hemisphere
// letter ("23.5880 N", "58.3829E").
func ParseCoordinates(lat, lon string) (celestial.GeoCoordinate, error) {
	la, err := parseAxis(lat, 'N', 'S')
	if err != nil {
		return celestial.GeoCoordinate{}, fmt.Errorf("latitude: %w", err)
	}
	lo, err := parseAxis(lon, 'E', 'W')
	if err != nil {
		return celestial.GeoCoordinate{}, fmt.Errorf("longitude: %w", err)
	}
	return celestial.NewGeoCoordinate(la, lo)
}

func parseAxis(s string, positive, negative byte) (float64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("%w: missing value", celestial.ErrInvalidInput)
	}

	sign := 1.0
	hemisphere := false
	switch s[len(s)-1] {
	case positive:
		hemisphere = true
	case negative:
		sign, hemisphere = -1, true
	}
	if hemisphere {
		s = strings.TrimSuffix(strings.TrimSpace(s[:len(s)-1]), "°")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", celestial.ErrInvalidInput, s)
	}
	if hemisphere && v < 0 {
		return 0, fmt.Errorf("%w: negative value with hemisphere letter", celestial.ErrInvalidInput)
	}
	return sign * v, nil
}
