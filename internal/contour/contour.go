// Package contour measures polygons with OpenCV's contour routines.
package contour

import (
	"image"

	"micromeasure/internal/measure"
	"micromeasure/pkg/geometry"

	"gocv.io/x/gocv"
)

// Measurer implements measure.Measurer on top of gocv.ContourArea and
// gocv.ArcLength. OpenCV contours are integer point vectors, so points are
// rounded to the nearest pixel regardless of the polygon's rounding mode.
type Measurer struct{}

var _ measure.Measurer = Measurer{}

// PixelArea returns the unsigned contour area.
func (Measurer) PixelArea(points []geometry.Point2D) float64 {
	if len(points) < 3 {
		return 0
	}
	pv := pointVector(points)
	defer pv.Close()
	return gocv.ContourArea(pv)
}

// PixelPerimeter returns the closed arc length.
func (Measurer) PixelPerimeter(points []geometry.Point2D) float64 {
	if len(points) < 3 {
		return 0
	}
	pv := pointVector(points)
	defer pv.Close()
	return gocv.ArcLength(pv, true)
}

func pointVector(points []geometry.Point2D) gocv.PointVector {
	pts := make([]image.Point, len(points))
	for i, p := range points {
		pi := p.ToInt()
		pts[i] = image.Point{X: pi.X, Y: pi.Y}
	}
	return gocv.NewPointVectorFromPoints(pts)
}
