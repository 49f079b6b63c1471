// Package generator turns point lists and curves into ordered point pairs
// ready for measurement.
//
// All modes project their input onto the generator's working plane first.
// Every emitted point carries a stable identity allocated from the
// generator's instance key, an input slot and an emission index, so
// re-running a generator over reshaped input keeps identities for the
// indices that still exist.
package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/pario-ai/dimsync/pkg/geometry"
	"github.com/pario-ai/dimsync/pkg/identity"
	"github.com/pario-ai/dimsync/pkg/models"
)

var (
	// ErrSinglePoint is returned by Sequence when given exactly one point.
	ErrSinglePoint = errors.New("at least two points are required")
	// ErrInvalidCurve is returned by Curves when an input curve is missing
	// or cannot be projected.
	ErrInvalidCurve = errors.New("invalid curve")
)

const (
	// MaxSteps caps the number of cursor advances in curve stepping.
	MaxSteps = 1000
	// IntersectTolerance is the tolerance passed to curve intersection.
	IntersectTolerance = 0.001
	// MinSearchLength is the floor for the ray cast from the reference curve.
	MinSearchLength = 1000.0
)

// Result is the output of one generator evaluation.
type Result struct {
	Pairs    []*models.PointPair
	Warnings []string
}

// Generator produces point pairs for one logical instance.
type Generator struct {
	instance string
	ids      *identity.Allocator
	plane    geometry.Plane
	logger   *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithPlane sets the working plane. The default is geometry.WorldXY.
func WithPlane(pl geometry.Plane) Option {
	return func(g *Generator) { g.plane = pl }
}

// WithLogger sets the logger warnings are written to.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns a Generator whose identities are keyed by instance.
func New(instance string, ids *identity.Allocator, opts ...Option) *Generator {
	if ids == nil {
		ids = identity.NewAllocator(nil)
	}
	g := &Generator{
		instance: instance,
		ids:      ids,
		plane:    geometry.WorldXY,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Instance returns the generator's identity key.
func (g *Generator) Instance() string { return g.instance }

// Sequence pairs consecutive points: (P0,P1), (P1,P2), ...
// Zero points yield an empty result and one point yields ErrSinglePoint.
func (g *Generator) Sequence(points []models.Point) (*Result, error) {
	res := &Result{}
	switch len(points) {
	case 0:
		return res, nil
	case 1:
		return nil, ErrSinglePoint
	}

	projected := g.projectAll(points)
	for i := 0; i+1 < len(projected); i++ {
		p1, p2 := projected[i], projected[i+1]
		if !g.acceptable(res, p1, p2, fmt.Sprintf("pair %d", i)) {
			continue
		}
		if err := g.emit(res, p1, p2, 0, i, 0, i+1); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Cross pairs every reference point with every target point, reference-major.
// An empty list on either side yields an empty result.
func (g *Generator) Cross(refs, targets []models.Point) (*Result, error) {
	res := &Result{}
	if len(refs) == 0 || len(targets) == 0 {
		return res, nil
	}

	pr, pt := g.projectAll(refs), g.projectAll(targets)
	for i, r := range pr {
		for j, t := range pt {
			if !g.acceptable(res, r, t, fmt.Sprintf("reference %d x target %d", i, j)) {
				continue
			}
			if err := g.emit(res, r, t, 0, i, 1, j); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

// Curves walks c1 in increments of step and pairs each sample with the
// first point where a ray along the start-to-start direction meets c2.
// A step of zero or less yields only the start pair.
func (g *Generator) Curves(c1, c2 geometry.Curve, step float64) (*Result, error) {
	if c1 == nil || c2 == nil {
		return nil, fmt.Errorf("%w: both curves are required", ErrInvalidCurve)
	}
	ref, err := c1.ProjectTo(g.plane)
	if err != nil {
		return nil, fmt.Errorf("%w: reference curve: %v", ErrInvalidCurve, err)
	}
	target, err := c2.ProjectTo(g.plane)
	if err != nil {
		return nil, fmt.Errorf("%w: target curve: %v", ErrInvalidCurve, err)
	}

	origin := g.plane.Origin()
	ref = geometry.OrientFrom(ref, origin)
	target = geometry.OrientFrom(target, origin)

	res := &Result{}
	start1, start2 := ref.Start(), target.Start()
	dir, ok := start2.Sub(start1).Unit()
	if !ok || start1.DistanceTo(start2) < models.Epsilon {
		g.warn(res, "curve start points coincide, no direction to search along")
		return res, nil
	}

	n := 0
	if err := g.emit(res, start1, start2, 0, n, 1, n); err != nil {
		return nil, err
	}
	n++
	if !(step > 0) {
		return res, nil
	}

	search := math.Max(2*target.Length(), MinSearchLength)
	for i := 1; i <= MaxSteps; i++ {
		cursor := step * float64(i)
		if cursor > ref.Length() {
			break
		}
		p, ok := ref.PointAtLength(cursor)
		if !ok {
			g.warn(res, fmt.Sprintf("cannot evaluate reference curve at length %.3f", cursor))
			break
		}
		hits := target.IntersectSegment(p, p.Add(dir.Scale(search)), IntersectTolerance)
		if len(hits) == 0 {
			g.logger.Debug("curve walk ended without intersection", "instance", g.instance, "cursor", cursor)
			break
		}
		q := hits[0].Point
		if !g.acceptable(res, p, q, fmt.Sprintf("step %d", i)) {
			continue
		}
		if err := g.emit(res, p, q, 0, n, 1, n); err != nil {
			return nil, err
		}
		n++
	}
	return res, nil
}

func (g *Generator) projectAll(points []models.Point) []models.Point {
	out := make([]models.Point, len(points))
	for i, p := range points {
		out[i] = g.plane.Project(p)
	}
	return out
}

func (g *Generator) acceptable(res *Result, p1, p2 models.Point, label string) bool {
	if !p1.IsFinite() || !p2.IsFinite() {
		g.warn(res, fmt.Sprintf("%s skipped: non-finite coordinates", label))
		return false
	}
	if p1.DistanceTo(p2) <= models.Epsilon {
		g.warn(res, fmt.Sprintf("%s skipped: points closer than %g", label, models.Epsilon))
		return false
	}
	return true
}

func (g *Generator) emit(res *Result, p1, p2 models.Point, slot1, idx1, slot2, idx2 int) error {
	id1, err := g.ids.GetOrCreate(g.instance, slot1, idx1)
	if err != nil {
		return fmt.Errorf("allocate identity: %w", err)
	}
	id2, err := g.ids.GetOrCreate(g.instance, slot2, idx2)
	if err != nil {
		return fmt.Errorf("allocate identity: %w", err)
	}
	res.Pairs = append(res.Pairs, models.NewPointPair(p1, p2, id1, id2))
	return nil
}

func (g *Generator) warn(res *Result, msg string) {
	g.logger.Warn(msg, "instance", g.instance)
	res.Warnings = append(res.Warnings, msg)
}
