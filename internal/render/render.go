// Package render draws sky charts as PNG images.
package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chrissnell/skywatch/pkg/skychart"
	"github.com/fogleman/gg"
)

// DefaultSize is the default edge length of a rendered chart in pixels
const DefaultSize = 800

// PNG draws charts with fogleman/gg.
type PNG struct {
	size     int
	fontPath string
}

// PNGOption configures a PNG renderer
type PNGOption func(*PNG)

// WithSize sets the image edge length in pixels
func WithSize(px int) PNGOption {
	return func(p *PNG) {
		if px > 0 {
			p.size = px
		}
	}
}

// WithFontFile sets a TrueType font for labels. Without one the built-in
// bitmap face is used and font sizes are ignored.
func WithFontFile(path string) PNGOption {
	return func(p *PNG) {
		p.fontPath = path
	}
}

// NewPNG creates a PNG renderer
func NewPNG(opts ...PNGOption) *PNG {
	p := &PNG{size: DefaultSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the image edge length in pixels
func (p *PNG) Size() int {
	return p.size
}

// Encode draws chart and writes it to w as PNG.
func (p *PNG) Encode(w io.Writer, chart skychart.Chart) error {
	dc, err := p.draw(chart)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encoding chart: %w", err)
	}
	return nil
}

func (p *PNG) draw(chart skychart.Chart) (*gg.Context, error) {
	size := float64(p.size)
	scale := size / (2 * skychart.Extent)
	// points assume an 800px chart
	pt := size / DefaultSize

	toPixel := func(pnt skychart.Point) (float64, float64) {
		return size/2 + pnt.X*scale, size/2 - pnt.Y*scale
	}

	dc := gg.NewContext(p.size, p.size)

	if err := setColor(dc, chart.Background, 1); err != nil {
		return nil, err
	}
	dc.Clear()

	h := chart.Horizon
	if err := setColor(dc, h.Color, h.Alpha); err != nil {
		return nil, err
	}
	cx, cy := toPixel(h.Center)
	dc.DrawCircle(cx, cy, h.Radius*scale)
	dc.Fill()

	for _, m := range chart.Markers {
		if err := setColor(dc, m.Color, 1); err != nil {
			return nil, err
		}
		x, y := toPixel(m.At)
		// marker size is an area in square points
		dc.DrawCircle(x, y, math.Sqrt(m.Size)/2*pt)
		dc.Fill()
	}

	var loadedSize float64
	for _, t := range chart.Texts {
		if p.fontPath != "" && t.FontSize != loadedSize {
			if err := dc.LoadFontFace(p.fontPath, t.FontSize*pt); err != nil {
				return nil, fmt.Errorf("loading font %s: %w", p.fontPath, err)
			}
			loadedSize = t.FontSize
		}
		if err := setColor(dc, t.Color, 1); err != nil {
			return nil, err
		}
		x, y := toPixel(t.At)
		ax := 0.5
		if t.Align == skychart.AlignLeft {
			ax = 0
		}
		dc.DrawStringAnchored(t.Text, x, y, ax, 0.5)
	}

	return dc, nil
}

// setColor parses #RRGGBB and applies it with the given alpha
func setColor(dc *gg.Context, hex string, alpha float64) error {
	r, g, b, err := parseHex(hex)
	if err != nil {
		return err
	}
	dc.SetRGBA(r, g, b, alpha)
	return nil
}

func parseHex(hex string) (r, g, b float64, err error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid color %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return float64(v>>16&0xff) / 255, float64(v>>8&0xff) / 255, float64(v&0xff) / 255, nil
}
