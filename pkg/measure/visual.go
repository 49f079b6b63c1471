package measure

import "github.com/pario-ai/dimsync/pkg/models"

// Segment is a straight line between two points.
type Segment struct {
	From models.Point `json:"from"`
	To   models.Point `json:"to"`
}

// Label is display text anchored at a point.
type Label struct {
	At   models.Point `json:"at"`
	Text string       `json:"text"`
}

// Artifact is the preview geometry for one measured pair.
type Artifact struct {
	Line       Segment    `json:"line"`
	Extensions [2]Segment `json:"extensions"`
	Label      Label      `json:"label"`
}

// Visualize builds the preview for pp: the measured line, a short extension
// line across each endpoint, and a label beside the midpoint.
func Visualize(pp *models.PointPair, units models.UnitSystem) Artifact {
	p1, p2 := pp.Point1, pp.Point2
	d := p1.DistanceTo(p2)

	perp, ok := p2.Sub(p1).Perp().Unit()
	if !ok {
		perp = models.Vector{X: 1}
	}
	ext := perp.Scale(d * 0.05)
	neg := ext.Scale(-1)

	return Artifact{
		Line: Segment{From: p1, To: p2},
		Extensions: [2]Segment{
			{From: p1.Add(neg), To: p1.Add(ext)},
			{From: p2.Add(neg), To: p2.Add(ext)},
		},
		Label: Label{
			At:   p1.Midpoint(p2).Add(perp.Scale(d * 0.1)),
			Text: units.FormatLength(d),
		},
	}
}
