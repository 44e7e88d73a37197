package observation

import (
	"time"

	"github.com/chrissnell/skywatch/internal/locator"
	"github.com/chrissnell/skywatch/pkg/celestial"
	"github.com/chrissnell/skywatch/pkg/skychart"
)

// Result is everything computed for one observation request
type Result struct {
	ID        string           `json:"id"`
	Location  locator.Place    `json:"location"`
	Instant   time.Time        `json:"instant"`
	LocalTime string           `json:"local_time"`
	UTCOffset string           `json:"utc_offset"`
	Window    Window           `json:"window"`
	Bodies    []BodyReport     `json:"bodies"`
	Visible   []celestial.Body `json:"visible"`
	Moon      MoonReport       `json:"moon"`
	Chart     skychart.Chart   `json:"chart"`
	ChartURL  string           `json:"chart_url,omitempty"`
}

// Window is the local civil day searched for events, in UTC
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BodyReport is the per-body part of a result. A body whose position could
// not be computed has a nil Position; one whose event search failed has
// EventsAvailable false and no events.
type BodyReport struct {
	Body            celestial.Body             `json:"body"`
	Color           string                     `json:"color"`
	Position        *celestial.HorizonPosition `json:"position,omitempty"`
	Visible         bool                       `json:"visible"`
	EventsAvailable bool                       `json:"events_available"`
	Events          []Event                    `json:"events"`
	Rise            string                     `json:"rise,omitempty"`
	Set             string                     `json:"set,omitempty"`
	Errors          []string                   `json:"errors,omitempty"`
}

// Unavailable reports whether any part of the body's data is missing
func (b BodyReport) Unavailable() bool {
	return b.Position == nil || !b.EventsAvailable
}

// Event is a rise or set with its local clock time
type Event struct {
	Kind  celestial.EventKind `json:"kind"`
	Time  time.Time           `json:"time"`
	Local string              `json:"local"`
}

// MoonReport is the Moon phase rounded for display
type MoonReport struct {
	Illumination      float64 `json:"illumination"`
	PhaseAngleRadians float64 `json:"phase_angle_radians"`
	PhaseAngleDegrees float64 `json:"phase_angle_degrees"`
	PhaseName         string  `json:"phase_name"`
	Elongation        float64 `json:"elongation"`
	AgeDays           float64 `json:"age_days"`
	IsWaxing          bool    `json:"is_waxing"`
	Indeterminate     bool    `json:"indeterminate"`
}

// Body returns the report for b
func (r *Result) Body(b celestial.Body) (BodyReport, bool) {
	for _, br := range r.Bodies {
		if br.Body == b {
			return br, true
		}
	}
	return BodyReport{}, false
}
