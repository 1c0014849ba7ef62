// Package measure accumulates user-picked points into a polygon and
// computes its area and perimeter in pixels and in calibrated units.
package measure

import (
	"micromeasure/pkg/geometry"
)

// Rounding selects how points are snapped before measuring.
type Rounding int

const (
	// RoundPixel snaps points to the nearest integer pixel, the way contour
	// routines measure on integer pixel grids.
	RoundPixel Rounding = iota
	// RoundNone measures points at full floating-point precision.
	RoundNone
)

func (r Rounding) String() string {
	switch r {
	case RoundPixel:
		return "pixel"
	case RoundNone:
		return "subpixel"
	default:
		return "unknown"
	}
}

// ParseRounding maps a preference string to a Rounding mode.
func ParseRounding(s string) (Rounding, bool) {
	switch s {
	case "pixel", "":
		return RoundPixel, true
	case "subpixel", "none":
		return RoundNone, true
	default:
		return RoundPixel, false
	}
}

// Measurer computes pixel-space area and perimeter of a closed polygon.
// Implementations return 0 for both when given fewer than 3 points.
type Measurer interface {
	PixelArea(points []geometry.Point2D) float64
	PixelPerimeter(points []geometry.Point2D) float64
}

// Shoelace is the pure-Go Measurer.
type Shoelace struct{}

// PixelArea returns the unsigned shoelace area.
func (Shoelace) PixelArea(points []geometry.Point2D) float64 {
	return geometry.Area(points)
}

// PixelPerimeter returns the closed-loop length.
func (Shoelace) PixelPerimeter(points []geometry.Point2D) float64 {
	return geometry.Perimeter(points)
}

// Scaler supplies the current pixels-per-unit factor.
type Scaler interface {
	CurrentScale() float64
}

// Result is a measurement in physical units.
type Result struct {
	AreaUnits2     float64 `json:"area_units2"`
	PerimeterUnits float64 `json:"perimeter_units"`
	PixelArea      float64 `json:"pixel_area"`
	PixelPerimeter float64 `json:"pixel_perimeter"`
	Scale          float64 `json:"scale"`
}

// Polygon holds the ordered points of one measurement. Points keep the
// order they were added in; the loop is always treated as closed.
type Polygon struct {
	points   []geometry.Point2D
	rounding Rounding
	measurer Measurer

	// cached pixel measurements, valid until the next mutation
	valid     bool
	area      float64
	perimeter float64
}

// Option configures a Polygon.
type Option func(*Polygon)

// WithRounding sets the rounding mode.
func WithRounding(r Rounding) Option {
	return func(p *Polygon) { p.rounding = r }
}

// WithMeasurer replaces the default Shoelace measurer.
func WithMeasurer(m Measurer) Option {
	return func(p *Polygon) {
		if m != nil {
			p.measurer = m
		}
	}
}

// NewPolygon returns an empty polygon that rounds to integer pixels and
// measures with Shoelace unless options say otherwise.
func NewPolygon(opts ...Option) *Polygon {
	p := &Polygon{rounding: RoundPixel, measurer: Shoelace{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddPoint appends a point.
func (p *Polygon) AddPoint(pt geometry.Point2D) {
	p.points = append(p.points, pt)
	p.valid = false
}

// Reset removes all points.
func (p *Polygon) Reset() {
	p.points = nil
	p.valid = false
}

// SetRounding changes the rounding mode.
func (p *Polygon) SetRounding(r Rounding) {
	if p.rounding != r {
		p.rounding = r
		p.valid = false
	}
}

// Rounding returns the rounding mode.
func (p *Polygon) Rounding() Rounding {
	return p.rounding
}

// SetMeasurer replaces the measurer. nil restores Shoelace.
func (p *Polygon) SetMeasurer(m Measurer) {
	if m == nil {
		m = Shoelace{}
	}
	p.measurer = m
	p.valid = false
}

// Len returns the number of points.
func (p *Polygon) Len() int {
	return len(p.points)
}

// Points returns a copy of the points as added.
func (p *Polygon) Points() []geometry.Point2D {
	out := make([]geometry.Point2D, len(p.points))
	copy(out, p.points)
	return out
}

// PixelArea returns the area in square pixels, 0 with fewer than 3 points.
func (p *Polygon) PixelArea() float64 {
	p.compute()
	return p.area
}

// PixelPerimeter returns the perimeter in pixels, 0 with fewer than 3 points.
func (p *Polygon) PixelPerimeter() float64 {
	p.compute()
	return p.perimeter
}

// Physical converts the pixel measurements using the scaler's current
// pixels-per-unit factor. A non-positive factor is treated as uncalibrated.
func (p *Polygon) Physical(s Scaler) Result {
	scale := 1.0
	if s != nil {
		if v := s.CurrentScale(); v > 0 {
			scale = v
		}
	}

	p.compute()
	return Result{
		AreaUnits2:     p.area / (scale * scale),
		PerimeterUnits: p.perimeter / scale,
		PixelArea:      p.area,
		PixelPerimeter: p.perimeter,
		Scale:          scale,
	}
}

func (p *Polygon) compute() {
	if p.valid {
		return
	}
	p.valid = true

	if len(p.points) < 3 {
		p.area, p.perimeter = 0, 0
		return
	}

	pts := p.points
	if p.rounding == RoundPixel {
		pts = geometry.RoundAll(pts)
	}
	p.area = p.measurer.PixelArea(pts)
	p.perimeter = p.measurer.PixelPerimeter(pts)
}
