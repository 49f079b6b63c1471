// Package measure publishes linear measurements between synchronized
// markers and runs whole synchronization passes over a pair list.
package measure

import (
	"context"
	"fmt"

	"github.com/pario-ai/dimsync/pkg/markersync"
	"github.com/pario-ai/dimsync/pkg/models"
	"github.com/pario-ai/dimsync/pkg/protocol"
)

// DimensionService creates linear measurements. Coordinates are meters.
type DimensionService interface {
	CreateLinearDimension(ctx context.Context, p protocol.CreateLinearDimensionParams) (*float64, protocol.Result)
}

// Outcome is the published result for one pair.
type Outcome struct {
	Success  bool
	Message  string
	Distance *float64
	Err      error
}

// Publisher issues the create-measurement command for synchronized pairs.
type Publisher struct {
	dims   DimensionService
	units  models.UnitSystem
	offset float64
}

// NewPublisher returns a Publisher. offset is the perpendicular offset of
// the measurement line in input units.
func NewPublisher(dims DimensionService, units models.UnitSystem, offset float64) *Publisher {
	return &Publisher{dims: dims, units: units, offset: offset}
}

// Publish attaches a measurement to the markers of pp. Nothing is sent
// unless sync left both markers in place.
func (p *Publisher) Publish(ctx context.Context, pp *models.PointPair, sync markersync.PairSync) Outcome {
	if msg, ok := markersUnavailable(pp, sync); !ok {
		return Outcome{Message: msg, Err: firstErr(sync)}
	}

	params := protocol.CreateLinearDimensionParams{
		Point1:     p.toRemote(pp.Point1),
		Point2:     p.toRemote(pp.Point2),
		Offset:     p.units.ToMeters(p.offset),
		Handle1:    pp.Marker1,
		Handle2:    pp.Marker2,
		ElementID1: pp.ElementID1,
		ElementID2: pp.ElementID2,
	}
	dist, res := p.dims.CreateLinearDimension(ctx, params)
	if !res.OK() {
		return Outcome{Message: "Failed to create dimension: " + res.Describe(), Err: res.Err()}
	}
	if dist != nil {
		return Outcome{
			Success:  true,
			Message:  fmt.Sprintf("Dimension created successfully (distance: %.2f)", *dist),
			Distance: dist,
		}
	}
	return Outcome{
		Success: true,
		Message: fmt.Sprintf("Dimension created successfully (length: %s)", p.units.FormatLength(pp.Distance())),
	}
}

// WithOffset returns a copy of p using offset instead.
func (p *Publisher) WithOffset(offset float64) *Publisher {
	cp := *p
	cp.offset = offset
	return &cp
}

func (p *Publisher) toRemote(pt models.Point) protocol.Point {
	return protocol.Point{
		X: p.units.ToMeters(pt.X),
		Y: p.units.ToMeters(pt.Y),
		Z: p.units.ToMeters(pt.Z),
	}
}

func markersUnavailable(pp *models.PointPair, sync markersync.PairSync) (string, bool) {
	m1, m2 := pp.Marker1 != "", pp.Marker2 != ""
	switch {
	case m1 && m2:
		return "", true
	case !m1 && !m2:
		return withReasons("Markers unavailable (both markers failed)", sync.Point1.Message, sync.Point2.Message), false
	case !m1:
		return withReasons("Markers unavailable (marker 1 failed)", sync.Point1.Message), false
	default:
		return withReasons("Markers unavailable (marker 2 failed)", sync.Point2.Message), false
	}
}

func withReasons(msg string, reasons ...string) string {
	for _, r := range reasons {
		if r != "" {
			msg += "; " + r
		}
	}
	return msg
}

func firstErr(sync markersync.PairSync) error {
	if sync.Point1.Err != nil {
		return sync.Point1.Err
	}
	return sync.Point2.Err
}
