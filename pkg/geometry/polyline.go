package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/pario-ai/dimsync/pkg/models"
)

// Polyline is a piecewise-linear curve through an ordered list of vertices.
type Polyline struct {
	pts []models.Point
	cum []float64 // cum[i] is the arc length from pts[0] to pts[i]
}

// NewPolyline builds a polyline through pts. At least two vertices and a
// non-zero length are required.
func NewPolyline(pts ...models.Point) (*Polyline, error) {
	if len(pts) < 2 {
		return nil, fmt.Errorf("polyline needs at least 2 vertices, got %d: %w", len(pts), ErrDegenerate)
	}
	for i, p := range pts {
		if !p.IsFinite() {
			return nil, fmt.Errorf("polyline vertex %d is not finite", i)
		}
	}
	cp := make([]models.Point, len(pts))
	copy(cp, pts)
	pl := &Polyline{pts: cp, cum: cumulative(cp)}
	if pl.Length() < models.Epsilon {
		return nil, fmt.Errorf("polyline has zero length: %w", ErrDegenerate)
	}
	return pl, nil
}

// NewLine is a two-vertex polyline from a to b.
func NewLine(a, b models.Point) (*Polyline, error) {
	return NewPolyline(a, b)
}

func cumulative(pts []models.Point) []float64 {
	cum := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		cum[i] = cum[i-1] + pts[i].DistanceTo(pts[i-1])
	}
	return cum
}

// Vertices returns a copy of the polyline's vertices.
func (pl *Polyline) Vertices() []models.Point {
	out := make([]models.Point, len(pl.pts))
	copy(out, pl.pts)
	return out
}

func (pl *Polyline) Start() models.Point { return pl.pts[0] }
func (pl *Polyline) End() models.Point   { return pl.pts[len(pl.pts)-1] }
func (pl *Polyline) Length() float64     { return pl.cum[len(pl.cum)-1] }

// PointAtLength evaluates the polyline at arc length s.
func (pl *Polyline) PointAtLength(s float64) (models.Point, bool) {
	const slack = 1e-9
	total := pl.Length()
	if math.IsNaN(s) || s < -slack || s > total+slack {
		return models.Point{}, false
	}
	s = math.Max(0, math.Min(s, total))

	idx := sort.SearchFloat64s(pl.cum, s)
	if idx == 0 {
		return pl.pts[0], true
	}
	segLen := pl.cum[idx] - pl.cum[idx-1]
	if segLen < models.Epsilon {
		return pl.pts[idx], true
	}
	return lerp(pl.pts[idx-1], pl.pts[idx], (s-pl.cum[idx-1])/segLen), true
}

// Reversed returns the polyline traversed from end to start.
func (pl *Polyline) Reversed() Curve {
	rev := make([]models.Point, len(pl.pts))
	for i, p := range pl.pts {
		rev[len(pl.pts)-1-i] = p
	}
	return &Polyline{pts: rev, cum: cumulative(rev)}
}

// ProjectTo flattens the polyline onto pl. Vertices that collapse onto
// their predecessor are dropped; a vertical polyline yields ErrDegenerate.
func (pl *Polyline) ProjectTo(plane Plane) (Curve, error) {
	flat := make([]models.Point, 0, len(pl.pts))
	for _, p := range pl.pts {
		q := plane.Project(p)
		if n := len(flat); n > 0 && flat[n-1].DistanceTo(q) < models.Epsilon {
			continue
		}
		flat = append(flat, q)
	}
	out, err := NewPolyline(flat...)
	if err != nil {
		return nil, fmt.Errorf("project polyline: %w", err)
	}
	return out, nil
}

// IntersectSegment intersects the segment a-b with the polyline in the XY
// plane. Hits are reported in order of arc length along the polyline, so the
// first hit is the one nearest the polyline's start, not the one nearest a.
func (pl *Polyline) IntersectSegment(a, b models.Point, tol float64) []Intersection {
	rx, ry := b.X-a.X, b.Y-a.Y
	rLen := math.Hypot(rx, ry)
	if rLen < models.Epsilon {
		return nil
	}

	var hits []Intersection
	for i := 0; i+1 < len(pl.pts); i++ {
		p, q := pl.pts[i], pl.pts[i+1]
		sx, sy := q.X-p.X, q.Y-p.Y
		sLen := math.Hypot(sx, sy)
		if sLen < models.Epsilon {
			continue
		}
		apx, apy := p.X-a.X, p.Y-a.Y
		denom := cross(rx, ry, sx, sy)

		var u, t float64
		if math.Abs(denom) <= 1e-12*rLen*sLen {
			// Parallel: only collinear overlap counts.
			if math.Abs(cross(apx, apy, rx, ry))/rLen > tol {
				continue
			}
			tp := dot(apx, apy, rx, ry) / (rLen * rLen)
			tq := dot(q.X-a.X, q.Y-a.Y, rx, ry) / (rLen * rLen)
			slackT := tol / rLen
			if math.Max(tp, tq) < -slackT || math.Min(tp, tq) > 1+slackT {
				continue
			}
			// First overlapping point walking from p towards q.
			switch {
			case tp >= -slackT && tp <= 1+slackT:
				u = 0
			case tp < 0:
				u = dot(a.X-p.X, a.Y-p.Y, sx, sy) / (sLen * sLen)
			default:
				u = dot(b.X-p.X, b.Y-p.Y, sx, sy) / (sLen * sLen)
			}
			u = clamp01(u)
			hit := lerp(p, q, u)
			t = clamp01(dot(hit.X-a.X, hit.Y-a.Y, rx, ry) / (rLen * rLen))
		} else {
			t = cross(apx, apy, sx, sy) / denom
			u = cross(apx, apy, rx, ry) / denom
			if t < -tol/rLen || t > 1+tol/rLen || u < -tol/sLen || u > 1+tol/sLen {
				continue
			}
			t, u = clamp01(t), clamp01(u)
		}

		at := pl.cum[i] + u*sLen
		if n := len(hits); n > 0 && math.Abs(at-hits[n-1].CurveLength) <= tol {
			// Same crossing reported by two segments sharing a vertex.
			continue
		}
		hits = append(hits, Intersection{
			Point:        lerp(p, q, u),
			CurveLength:  at,
			SegmentParam: t,
		})
	}
	return hits
}

func lerp(p, q models.Point, t float64) models.Point {
	return models.Point{
		X: p.X + (q.X-p.X)*t,
		Y: p.Y + (q.Y-p.Y)*t,
		Z: p.Z + (q.Z-p.Z)*t,
	}
}

func cross(ax, ay, bx, by float64) float64 { return ax*by - ay*bx }
func dot(ax, ay, bx, by float64) float64   { return ax*bx + ay*by }

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }
