// Package geometry provides the planar curve operations the pair generator
// relies on: projection, orientation, arc-length evaluation and
// segment intersection.
package geometry

import (
	"errors"

	"github.com/pario-ai/dimsync/pkg/models"
)

// ErrDegenerate is returned when a curve has no measurable length.
var ErrDegenerate = errors.New("degenerate curve")

// Plane is a horizontal working plane at elevation Z.
type Plane struct {
	Z float64
}

// WorldXY is the XY plane through the world origin.
var WorldXY = Plane{}

// Origin returns the plane's origin point.
func (pl Plane) Origin() models.Point {
	return models.Point{Z: pl.Z}
}

// Project drops p onto the plane by replacing its Z coordinate.
func (pl Plane) Project(p models.Point) models.Point {
	return models.Point{X: p.X, Y: p.Y, Z: pl.Z}
}

// Intersection is a point where a segment meets a curve.
type Intersection struct {
	// Point lies on the curve.
	Point models.Point
	// CurveLength is the arc length from the curve start to Point.
	CurveLength float64
	// SegmentParam is the normalized position of Point along the segment.
	SegmentParam float64
}

// Curve is the subset of host curve behaviour the generator needs.
type Curve interface {
	Start() models.Point
	End() models.Point
	Length() float64
	// PointAtLength evaluates the curve at arc length s from its start.
	// It returns false when s lies outside [0, Length()].
	PointAtLength(s float64) (models.Point, bool)
	Reversed() Curve
	ProjectTo(pl Plane) (Curve, error)
	// IntersectSegment returns where the segment a-b crosses the curve,
	// ordered by CurveLength.
	IntersectSegment(a, b models.Point, tol float64) []Intersection
}

// OrientFrom reverses c when its end lies closer to ref than its start.
func OrientFrom(c Curve, ref models.Point) Curve {
	if c.End().DistanceTo(ref) < c.Start().DistanceTo(ref) {
		return c.Reversed()
	}
	return c
}
