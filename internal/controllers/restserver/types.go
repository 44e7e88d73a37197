package restserver

import (
	"time"

	"github.com/chrissnell/skywatch/internal/locator"
	"github.com/chrissnell/skywatch/internal/observation"
)

// MoonResponse is the body of /api/moon
type MoonResponse struct {
	Instant   time.Time              `json:"instant"`
	LocalTime string                 `json:"local_time"`
	Moon      observation.MoonReport `json:"moon"`
}

// LocationsResponse is the body of /api/locations
type LocationsResponse struct {
	Default   string          `json:"default"`
	Locations []locator.Place `json:"locations"`
}

// HealthResponse is the body of /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
