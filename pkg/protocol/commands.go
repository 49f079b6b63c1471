package protocol

import "github.com/pario-ai/dimsync/pkg/models"

// Add-on command names.
const (
	CmdPing                  = "Ping"
	CmdGetPort               = "GetPort"
	CmdCreateHotspot         = "CreateHotspot"
	CmdUpdateHotspot         = "UpdateHotspot"
	CmdCreateLinearDimension = "CreateLinearDimension"
	CmdGetDimensions         = "GetDimensions"
)

// Point is a coordinate in remote (meter) units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CreateHotspotParams places a new marker. CorrelationID carries the
// point's stable identity when one is known.
type CreateHotspotParams struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	CorrelationID string  `json:"rhinoPointGuid,omitempty"`
}

// CreateHotspotResponse carries the new marker's handle.
type CreateHotspotResponse struct {
	Handle string `json:"hotspotGuid"`
}

// UpdateHotspotParams moves an existing marker.
type UpdateHotspotParams struct {
	Handle string  `json:"hotspotGuid"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// CreateLinearDimensionParams attaches a linear measurement to two markers.
type CreateLinearDimensionParams struct {
	Point1     Point   `json:"point1"`
	Point2     Point   `json:"point2"`
	Offset     float64 `json:"offset"`
	Handle1    string  `json:"hotspotGuid1"`
	Handle2    string  `json:"hotspotGuid2"`
	ElementID1 string  `json:"elementGuid1,omitempty"`
	ElementID2 string  `json:"elementGuid2,omitempty"`
}

// CreateLinearDimensionResponse optionally reports the measured distance.
type CreateLinearDimensionResponse struct {
	Distance *float64 `json:"distance,omitempty"`
}

// PingResponse is the reply to Ping.
type PingResponse struct {
	Message *string `json:"message"`
}

// GetPortResponse reports the port the service listens on.
type GetPortResponse struct {
	Port int `json:"port"`
}

// GetDimensionsParams optionally restricts the listing to one layer.
type GetDimensionsParams struct {
	FilterLayer string `json:"filterLayer,omitempty"`
}

// GetDimensionsResponse lists the dimensions in the remote document.
type GetDimensionsResponse struct {
	Dimensions []DimensionEntry `json:"dimensions"`
}

// DimensionEntry is one dimension as listed by the service.
type DimensionEntry struct {
	GUID   string  `json:"guid"`
	Type   string  `json:"type"`
	Layer  string  `json:"layer"`
	Text   string  `json:"text"`
	Points []Point `json:"points"`
}

// Model converts the entry to a models.Dimension. Entries with fewer than
// two points are not usable and return false.
func (d DimensionEntry) Model() (models.Dimension, bool) {
	if len(d.Points) < 2 {
		return models.Dimension{}, false
	}
	pts := make([]models.Point, len(d.Points))
	for i, p := range d.Points {
		pts[i] = models.Pt(p.X, p.Y, p.Z)
	}
	return models.Dimension{GUID: d.GUID, Type: d.Type, Layer: d.Layer, Text: d.Text, Points: pts}, true
}
