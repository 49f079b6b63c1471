package measure_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/dimsync/pkg/client"
	"github.com/pario-ai/dimsync/pkg/client/clienttest"
	"github.com/pario-ai/dimsync/pkg/generator"
	"github.com/pario-ai/dimsync/pkg/identity"
	"github.com/pario-ai/dimsync/pkg/markersync"
	"github.com/pario-ai/dimsync/pkg/measure"
	"github.com/pario-ai/dimsync/pkg/models"
	"github.com/pario-ai/dimsync/pkg/protocol"
)

type pipeline struct {
	gen    *generator.Generator
	runner *measure.Runner
}

func newPipeline(t *testing.T, baseURL string, dims func(*client.Client) measure.DimensionService) *pipeline {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := client.New(baseURL, client.WithLogger(quiet))
	var ds measure.DimensionService = c
	if dims != nil {
		ds = dims(c)
	}
	engine := markersync.New(c, nil, markersync.WithUnits(models.Meters), markersync.WithLogger(quiet))
	return &pipeline{
		gen:    generator.New("scenario", identity.NewAllocator(nil), generator.WithLogger(quiet)),
		runner: measure.NewRunner(engine, measure.NewPublisher(ds, models.Meters, 0), nil, quiet),
	}
}

func (p *pipeline) pass(t *testing.T, pts ...models.Point) *measure.Report {
	t.Helper()
	res, err := p.gen.Sequence(pts)
	require.NoError(t, err)
	return p.runner.Run(context.Background(), res.Pairs)
}

func dimensionParams(t *testing.T, c clienttest.Call) protocol.CreateLinearDimensionParams {
	t.Helper()
	var p protocol.CreateLinearDimensionParams
	require.NoError(t, json.Unmarshal(c.Params, &p))
	return p
}

func TestScenarioFirstPassCreatesMarkersAndMeasurement(t *testing.T) {
	srv := clienttest.NewServer(t)
	p := newPipeline(t, srv.BaseURL(), nil)

	rep := p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0))

	require.Equal(t, []bool{true}, rep.Success)
	assert.Contains(t, rep.Messages[0], "distance: 5.00")
	assert.Equal(t, []string{
		protocol.CmdCreateHotspot, protocol.CmdCreateHotspot, protocol.CmdCreateLinearDimension,
	}, srv.Commands())

	dim := dimensionParams(t, srv.Calls()[2])
	assert.Equal(t, "H1", dim.Handle1)
	assert.Equal(t, "H2", dim.Handle2)
	require.NotNil(t, rep.Outcomes[0].Visual)
}

func TestScenarioMovedPointUpdatesOnlyThatMarker(t *testing.T) {
	srv := clienttest.NewServer(t)
	p := newPipeline(t, srv.BaseURL(), nil)

	p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0))
	rep := p.pass(t, models.Pt(0, 0, 0), models.Pt(15, 0, 0))

	require.Equal(t, []bool{true}, rep.Success)
	calls := srv.Calls()[3:]
	require.Len(t, calls, 2)
	assert.Equal(t, protocol.CmdUpdateHotspot, calls[0].Command)
	var upd protocol.UpdateHotspotParams
	require.NoError(t, json.Unmarshal(calls[0].Params, &upd))
	assert.Equal(t, "H2", upd.Handle)
	assert.InDelta(t, 15.0, upd.X, 1e-12)

	assert.Equal(t, protocol.CmdCreateLinearDimension, calls[1].Command)
	dim := dimensionParams(t, calls[1])
	assert.InDelta(t, 15.0, dim.Point2.X, 1e-12)
	assert.Contains(t, rep.Messages[0], "distance: 15.00")
}

type countingDims struct {
	next  measure.DimensionService
	calls int
}

func (c *countingDims) CreateLinearDimension(ctx context.Context, p protocol.CreateLinearDimensionParams) (*float64, protocol.Result) {
	c.calls++
	return c.next.CreateLinearDimension(ctx, p)
}

func TestScenarioUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	counter := &countingDims{}
	p := newPipeline(t, url, func(c *client.Client) measure.DimensionService {
		counter.next = c
		return counter
	})

	rep := p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0))

	require.Equal(t, []bool{false}, rep.Success)
	assert.Contains(t, rep.Messages[0], "Markers unavailable (both markers failed)")
	assert.Contains(t, rep.Messages[0], "service unreachable")
	assert.Zero(t, counter.calls)
}

func TestScenarioSecondPassIsSilent(t *testing.T) {
	srv := clienttest.NewServer(t)
	p := newPipeline(t, srv.BaseURL(), nil)

	p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0), models.Pt(5, 5, 0))
	before := len(srv.Calls())
	rep := p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0), models.Pt(5, 5, 0))

	assert.Equal(t, []bool{true, true}, rep.Success)
	assert.Equal(t, 3, srv.Count(protocol.CmdCreateHotspot), "shared point gets one marker")
	assert.Equal(t, []string{protocol.CmdCreateLinearDimension, protocol.CmdCreateLinearDimension},
		srv.Commands()[before:])
}

func TestScenarioForceTriggerIsConsumed(t *testing.T) {
	srv := clienttest.NewServer(t)
	p := newPipeline(t, srv.BaseURL(), nil)

	p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0))
	p.runner.Trigger().Raise()
	rep := p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0))
	assert.True(t, rep.Forced)
	assert.Equal(t, 2, srv.Count(protocol.CmdUpdateHotspot))

	rep = p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0))
	assert.False(t, rep.Forced)
	assert.Equal(t, 2, srv.Count(protocol.CmdUpdateHotspot))
}

func TestScenarioForcedSequenceUpdatesEachPointOnce(t *testing.T) {
	srv := clienttest.NewServer(t)
	p := newPipeline(t, srv.BaseURL(), nil)

	pts := []models.Point{models.Pt(0, 0, 0), models.Pt(3, 0, 0), models.Pt(3, 4, 0)}
	p.pass(t, pts...)
	p.runner.Trigger().Raise()
	rep := p.pass(t, pts...)

	require.True(t, rep.Forced)
	assert.Equal(t, []bool{true, true}, rep.Success)
	assert.Equal(t, 3, srv.Count(protocol.CmdUpdateHotspot))
	assert.Equal(t, markersync.StateClean, rep.Outcomes[1].Sync.Point1.State)
}

func TestScenarioRejectedUpdateRecreatesMarker(t *testing.T) {
	srv := clienttest.NewServer(t)
	p := newPipeline(t, srv.BaseURL(), nil)

	p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0))
	srv.RejectUpdates("H2")
	rep := p.pass(t, models.Pt(0, 0, 0), models.Pt(6, 0, 0))

	require.Equal(t, []bool{true}, rep.Success)
	assert.Equal(t, []string{
		protocol.CmdUpdateHotspot, protocol.CmdCreateHotspot, protocol.CmdCreateLinearDimension,
	}, srv.Commands()[3:])
	dim := dimensionParams(t, srv.Calls()[5])
	assert.Equal(t, "H3", dim.Handle2)
	assert.Equal(t, markersync.ActionRecreated, rep.Outcomes[0].Sync.Point2.Action)
}

func TestScenarioUpdateWithoutSuccessRecreatesOnce(t *testing.T) {
	srv := clienttest.NewServer(t)
	p := newPipeline(t, srv.BaseURL(), nil)

	p.pass(t, models.Pt(0, 0, 0), models.Pt(5, 0, 0))
	srv.AnswerBare(protocol.CmdUpdateHotspot)
	rep := p.pass(t, models.Pt(0, 0, 0), models.Pt(6, 0, 0))

	require.Equal(t, []bool{true}, rep.Success)
	assert.Equal(t, []string{
		protocol.CmdUpdateHotspot, protocol.CmdCreateHotspot, protocol.CmdCreateLinearDimension,
	}, srv.Commands()[3:])
	assert.Equal(t, 3, srv.Count(protocol.CmdCreateHotspot))
	assert.Equal(t, markersync.ActionRecreated, rep.Outcomes[0].Sync.Point2.Action)
	assert.Equal(t, "H3", dimensionParams(t, srv.Calls()[5]).Handle2)
}

func TestRunReportsInvalidPairsWithoutRemoteCalls(t *testing.T) {
	srv := clienttest.NewServer(t)
	p := newPipeline(t, srv.BaseURL(), nil)

	bad := models.NewPointPair(models.Pt(1, 1, 1), models.Pt(1, 1, 1), "", "")
	good := models.NewPointPair(models.Pt(0, 0, 0), models.Pt(1, 0, 0), "x", "y")
	rep := p.runner.Run(context.Background(), []*models.PointPair{bad, nil, good})

	assert.Equal(t, []bool{false, false, true}, rep.Success)
	assert.Equal(t, "Invalid PointPair", rep.Messages[0])
	assert.Equal(t, "Invalid PointPair", rep.Messages[1])
	assert.Equal(t, 1, srv.Count(protocol.CmdCreateLinearDimension))
	assert.Equal(t, 1, rep.Succeeded())
}
