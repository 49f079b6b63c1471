package models

import "fmt"

// Identity is an opaque token naming "the same logical point" across
// repeated generator evaluations. The empty Identity means none was assigned.
type Identity string

// PointPair is two points to be joined by a linear measurement, together with
// the remote marker state tracked for each of them.
type PointPair struct {
	Point1 Point `json:"point1"`
	Point2 Point `json:"point2"`

	Identity1 Identity `json:"identity1,omitempty"`
	Identity2 Identity `json:"identity2,omitempty"`

	// Marker1 and Marker2 are remote marker handles; empty until created.
	Marker1 string `json:"marker1,omitempty"`
	Marker2 string `json:"marker2,omitempty"`

	// Previous1 and Previous2 hold the coordinates last confirmed by the
	// remote service.
	Previous1 *Point `json:"previous1,omitempty"`
	Previous2 *Point `json:"previous2,omitempty"`

	// ElementID1 and ElementID2 are legacy correlation ids passed through
	// to the measurement command when set.
	ElementID1 string `json:"element_id1,omitempty"`
	ElementID2 string `json:"element_id2,omitempty"`
}

// NewPointPair returns a pair of p1 and p2 carrying the given identities.
func NewPointPair(p1, p2 Point, id1, id2 Identity) *PointPair {
	return &PointPair{Point1: p1, Point2: p2, Identity1: id1, Identity2: id2}
}

// IsValid reports whether both points are finite and farther apart than Epsilon.
func (pp *PointPair) IsValid() bool {
	if pp == nil {
		return false
	}
	return pp.Point1.IsFinite() && pp.Point2.IsFinite() && pp.Point1.DistanceTo(pp.Point2) > Epsilon
}

// Distance returns the distance between the two points.
func (pp *PointPair) Distance() float64 {
	return pp.Point1.DistanceTo(pp.Point2)
}

func (pp *PointPair) String() string {
	if !pp.IsValid() {
		return "Invalid PointPair"
	}
	return fmt.Sprintf("PointPair: P1%s -> P2%s", pp.Point1, pp.Point2)
}
