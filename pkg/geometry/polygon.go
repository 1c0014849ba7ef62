package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// SignedArea computes the signed area of a closed polygon using the
// shoelace formula. Counter-clockwise vertex order (in a y-up frame) is
// positive. Returns 0 for fewer than 3 points.
func SignedArea(polygon []Point2D) float64 {
	n := len(polygon)
	if n < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += r2.Cross(polygon[i].Vec(), polygon[(i+1)%n].Vec())
	}
	return sum / 2
}

// Area returns the unsigned area of a closed polygon.
func Area(polygon []Point2D) float64 {
	return math.Abs(SignedArea(polygon))
}

// Perimeter returns the length of the closed loop through the polygon
// vertices, including the edge from the last vertex back to the first.
// Returns 0 for fewer than 3 points.
func Perimeter(polygon []Point2D) float64 {
	n := len(polygon)
	if n < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += polygon[i].Distance(polygon[(i+1)%n])
	}
	return sum
}

// RoundAll returns a copy of the points snapped to integer pixels.
func RoundAll(points []Point2D) []Point2D {
	out := make([]Point2D, len(points))
	for i, p := range points {
		out[i] = p.Round()
	}
	return out
}
