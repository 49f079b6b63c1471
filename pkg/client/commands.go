package client

import (
	"context"

	"github.com/pario-ai/dimsync/pkg/models"
	"github.com/pario-ai/dimsync/pkg/protocol"
)

// Ping checks that the add-on is listening and returns its greeting.
func (c *Client) Ping(ctx context.Context) (string, protocol.Result) {
	res := c.Execute(ctx, protocol.CmdPing, nil)
	if !res.OK() {
		return "", res
	}
	var out protocol.PingResponse
	if err := res.Decode(&out); err != nil || out.Message == nil {
		return "", protocol.CommandFailure(res.Data, "unexpected response format")
	}
	return *out.Message, res
}

// GetPort asks the service which port it listens on.
func (c *Client) GetPort(ctx context.Context) (int, protocol.Result) {
	res := c.Execute(ctx, protocol.CmdGetPort, nil)
	if !res.OK() {
		return 0, res
	}
	var out protocol.GetPortResponse
	if err := res.Decode(&out); err != nil || out.Port <= 0 {
		return 0, protocol.CommandFailure(res.Data, "unexpected response format")
	}
	return out.Port, res
}

// CreateHotspot places a marker at (x, y) meters and returns its handle.
// The reply must carry success=true and a handle.
func (c *Client) CreateHotspot(ctx context.Context, x, y float64, correlationID string) (string, protocol.Result) {
	res := c.Execute(ctx, protocol.CmdCreateHotspot, protocol.CreateHotspotParams{
		X: x, Y: y, CorrelationID: correlationID,
	}).RequireSuccess()
	if !res.OK() {
		return "", res
	}
	var out protocol.CreateHotspotResponse
	if err := res.Decode(&out); err != nil || out.Handle == "" {
		return "", protocol.CommandFailure(res.Data, "response has no hotspot handle")
	}
	return out.Handle, res
}

// UpdateHotspot moves the marker handle to (x, y) meters. A reply without
// success=true is a command failure.
func (c *Client) UpdateHotspot(ctx context.Context, handle string, x, y float64) protocol.Result {
	return c.Execute(ctx, protocol.CmdUpdateHotspot, protocol.UpdateHotspotParams{
		Handle: handle, X: x, Y: y,
	}).RequireSuccess()
}

// CreateLinearDimension attaches a measurement to two markers. The returned
// distance is nil when the service does not report one.
func (c *Client) CreateLinearDimension(ctx context.Context, p protocol.CreateLinearDimensionParams) (*float64, protocol.Result) {
	res := c.Execute(ctx, protocol.CmdCreateLinearDimension, p)
	if !res.OK() {
		return nil, res
	}
	var out protocol.CreateLinearDimensionResponse
	if err := res.Decode(&out); err != nil {
		return nil, res
	}
	return out.Distance, res
}

// GetDimensions lists the document's dimensions, optionally on one layer.
// Entries with fewer than two points are skipped.
func (c *Client) GetDimensions(ctx context.Context, layer string) ([]models.Dimension, protocol.Result) {
	res := c.Execute(ctx, protocol.CmdGetDimensions, protocol.GetDimensionsParams{FilterLayer: layer})
	if !res.OK() {
		return nil, res
	}
	var out protocol.GetDimensionsResponse
	if err := res.Decode(&out); err != nil {
		return nil, protocol.CommandFailure(res.Data, "unexpected response format")
	}
	dims := make([]models.Dimension, 0, len(out.Dimensions))
	for _, d := range out.Dimensions {
		if m, ok := d.Model(); ok {
			dims = append(dims, m)
		}
	}
	return dims, res
}
