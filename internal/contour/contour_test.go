package contour

import (
	"testing"

	"micromeasure/internal/measure"
	"micromeasure/pkg/geometry"

	"github.com/stretchr/testify/assert"
)

func TestMatchesShoelace(t *testing.T) {
	shapes := map[string][]geometry.Point2D{
		"triangle":  {{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}},
		"square":    {{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		"concave":   {{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 10, Y: 5}, {X: 0, Y: 20}},
		"clockwise": {{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}},
	}

	var ref measure.Shoelace
	for name, pts := range shapes {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, ref.PixelArea(pts), Measurer{}.PixelArea(pts), 1e-6)
			assert.InDelta(t, ref.PixelPerimeter(pts), Measurer{}.PixelPerimeter(pts), 1e-6)
		})
	}
}

func TestFewPoints(t *testing.T) {
	pts := []geometry.Point2D{{X: 0, Y: 0}, {X: 5, Y: 5}}
	assert.Zero(t, Measurer{}.PixelArea(pts))
	assert.Zero(t, Measurer{}.PixelPerimeter(pts))
}

func TestRoundsToIntegerPixels(t *testing.T) {
	p := measure.NewPolygon(measure.WithMeasurer(Measurer{}), measure.WithRounding(measure.RoundNone))
	for _, pt := range []geometry.Point2D{{X: 0.4, Y: 0.4}, {X: 10.4, Y: 0.2}, {X: 10.3, Y: 9.6}, {X: 0.2, Y: 10.4}} {
		p.AddPoint(pt)
	}
	assert.InDelta(t, 100.0, p.PixelArea(), 1e-6)
	assert.InDelta(t, 40.0, p.PixelPerimeter(), 1e-6)
}
