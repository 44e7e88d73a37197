// Package skychart projects horizon positions onto a polar chart. The zenith
// is at the origin and the horizon is the unit circle; azimuth a and
// altitude h map to (cos a, sin a) scaled by 1 - h/90.
//
// The output is a list of draw primitives. Turning them into pixels is the
// job of a renderer.
package skychart

import (
	"math"
	"strconv"

	"github.com/chrissnell/skywatch/pkg/celestial"
)

const (
	// CardinalRadius is where the N/E/S/W labels sit
	CardinalRadius = 1.2
	// RingLabelRadius is where the azimuth ring labels sit
	RingLabelRadius = 1.05
	// RingLabelStep is the azimuth spacing of the ring labels, in degrees
	RingLabelStep = 30
	// BodyLabelOffset lifts a body's name above its marker
	BodyLabelOffset = 0.05
	// Extent is the half-width of the square that contains every primitive
	Extent = CardinalRadius + 0.1
)

// Font sizes in points, relative to a chart roughly 8 inches across
const (
	CardinalFontSize  = 14
	RingFontSize      = 8
	BodyLabelFontSize = 12
	MarkerSize        = 100
)

// Colors
const (
	BackgroundColor = "#0c0842"
	HorizonColor    = "#ADD8E6"
	HorizonAlpha    = 0.5
	LabelColor      = "#FFFFFF"
)

// Align is the anchor of a text primitive relative to its point
type Align int

const (
	AlignCenter Align = iota
	AlignLeft
)

// Point is a position in chart units
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Circle is a filled circle
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
	Alpha  float64 `json:"alpha"`
}

// Text is a label
type Text struct {
	At       Point   `json:"at"`
	Text     string  `json:"text"`
	Color    string  `json:"color"`
	FontSize float64 `json:"font_size"`
	Align    Align   `json:"align"`
}

// Marker is a body drawn at its projected position
type Marker struct {
	Body  celestial.Body `json:"body"`
	At    Point          `json:"at"`
	Color string         `json:"color"`
	Size  float64        `json:"size"`
}

// Placement pairs a body with where it is in the sky
type Placement struct {
	Body     celestial.Body
	Position celestial.HorizonPosition
}

// Chart holds everything needed to draw one sky chart. Texts are in draw order:
// cardinal labels, ring labels, then body labels.
type Chart struct {
	Background string   `json:"background"`
	Horizon    Circle   `json:"horizon"`
	Texts      []Text   `json:"texts"`
	Markers    []Marker `json:"markers"`
}


var cardinals = []struct {
	azimuth float64
	label   string
}{
	{0, "N"},
	{90, "E"},
	{180, "S"},
	{270, "W"},
}

// Project builds the chart for the given placements. The horizon and the
// compass labels are always present; only bodies above the horizon get a
// marker and a label.
func Project(placements []Placement) Chart {
	chart := Chart{
		Background: BackgroundColor,
		Horizon: Circle{
			Center: Point{0, 0},
			Radius: 1,
			Color:  HorizonColor,
			Alpha:  HorizonAlpha,
		},
	}

	for _, c := range cardinals {
		chart.Texts = append(chart.Texts, Text{
			At:       polar(c.azimuth, CardinalRadius),
			Text:     c.label,
			Color:    LabelColor,
			FontSize: CardinalFontSize,
			Align:    AlignCenter,
		})
	}

	for az := 0; az < 360; az += RingLabelStep {
		chart.Texts = append(chart.Texts, Text{
			At:       polar(float64(az), RingLabelRadius),
			Text:     strconv.Itoa(az) + "°",
			Color:    LabelColor,
			FontSize: RingFontSize,
			Align:    AlignCenter,
		})
	}

	for _, p := range placements {
		if !p.Position.AboveHorizon() {
			continue
		}
		at := ProjectPoint(p.Position)
		chart.Markers = append(chart.Markers, Marker{
			Body:  p.Body,
			At:    at,
			Color: p.Body.Color(),
			Size:  MarkerSize,
		})
		chart.Texts = append(chart.Texts, Text{
			At:       Point{at.X, at.Y + BodyLabelOffset},
			Text:     p.Body.String(),
			Color:    LabelColor,
			FontSize: BodyLabelFontSize,
			Align:    AlignCenter,
		})
	}

	return chart
}

// ProjectPoint maps a horizon position to chart coordinates. Altitudes
// outside [-90,90] are clamped first.
func ProjectPoint(p celestial.HorizonPosition) Point {
	alt := math.Max(-90, math.Min(90, p.Altitude))
	return polar(p.Azimuth, 1-alt/90)
}

func polar(azDeg, r float64) Point {
	s, c := math.Sincos(azDeg * math.Pi / 180)
	return Point{X: c * r, Y: s * r}
}
