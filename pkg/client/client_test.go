package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pario-ai/dimsync/pkg/models"
	"github.com/pario-ai/dimsync/pkg/protocol"
)

type wireRequest struct {
	Command    string `json:"command"`
	Parameters struct {
		ID     protocol.CommandID `json:"addOnCommandId"`
		Params json.RawMessage    `json:"addOnCommandParameters"`
	} `json:"parameters"`
}

// fakeService answers every request with reply(command, params).
func fakeService(t *testing.T, reply func(cmd string, params json.RawMessage) string) (*httptest.Server, *[]wireRequest) {
	t.Helper()
	var mu sync.Mutex
	var seen []wireRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply(req.Parameters.ID.Name, req.Parameters.Params)))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:19723/", BaseURL("", 0))
	assert.Equal(t, "http://example.local:8080/", BaseURL("example.local", 8080))
}

func TestCreateHotspot(t *testing.T) {
	srv, seen := fakeService(t, func(cmd string, params json.RawMessage) string {
		return `{"result":{"addOnCommandResponse":{"success":true,"hotspotGuid":"H1"}}}`
	})
	c := New(srv.URL)

	handle, res := c.CreateHotspot(context.Background(), 0.5, 0.25, "id-1")
	require.True(t, res.OK(), res.Describe())
	assert.Equal(t, "H1", handle)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, protocol.Command, req.Command)
	assert.Equal(t, protocol.DefaultNamespace, req.Parameters.ID.Namespace)
	assert.Equal(t, protocol.CmdCreateHotspot, req.Parameters.ID.Name)
	assert.JSONEq(t, `{"x":0.5,"y":0.25,"rhinoPointGuid":"id-1"}`, string(req.Parameters.Params))
}

func TestCreateHotspotWithoutHandleFails(t *testing.T) {
	srv, _ := fakeService(t, func(string, json.RawMessage) string {
		return `{"result":{"addOnCommandResponse":{"success":true}}}`
	})
	handle, res := New(srv.URL).CreateHotspot(context.Background(), 0, 0, "")
	assert.Empty(t, handle)
	assert.Equal(t, protocol.KindCommand, res.Kind)
	assert.True(t, errors.Is(res.Err(), protocol.ErrRejected))
}

func TestHotspotCommandsRequireSuccess(t *testing.T) {
	srv, _ := fakeService(t, func(cmd string, _ json.RawMessage) string {
		if cmd == protocol.CmdCreateHotspot {
			return `{"result":{"addOnCommandResponse":{"hotspotGuid":"H9"}}}`
		}
		return `{"result":{"addOnCommandResponse":{}}}`
	})
	c := New(srv.URL)

	handle, res := c.CreateHotspot(context.Background(), 0, 0, "")
	assert.Empty(t, handle)
	assert.Equal(t, protocol.KindCommand, res.Kind)
	assert.Equal(t, "command did not report success", res.Message)

	res = c.UpdateHotspot(context.Background(), "H9", 1, 1)
	assert.Equal(t, protocol.KindCommand, res.Kind)
	assert.True(t, errors.Is(res.Err(), protocol.ErrRejected))

	// Dimension replies stay lenient about the success field.
	_, res = c.CreateLinearDimension(context.Background(), protocol.CreateLinearDimensionParams{Handle1: "H1", Handle2: "H2"})
	assert.True(t, res.OK())
}

func TestCommandLevelFailure(t *testing.T) {
	srv, _ := fakeService(t, func(string, json.RawMessage) string {
		return `{"result":{"addOnCommandResponse":{"success":false,"error":{"message":"hotspot not found"}}}}`
	})
	res := New(srv.URL).UpdateHotspot(context.Background(), "H9", 1, 2)
	assert.Equal(t, protocol.KindCommand, res.Kind)
	assert.Equal(t, "service reported an error: hotspot not found", res.Describe())
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := New(srv.URL).Execute(context.Background(), protocol.CmdPing, nil)
	assert.Equal(t, protocol.KindEnvelope, res.Kind)
	assert.Equal(t, "HTTP 500: boom", res.Message)
}

func TestUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, res := New(url).CreateHotspot(context.Background(), 0, 0, "")
	assert.Equal(t, protocol.KindTransport, res.Kind)
	assert.True(t, errors.Is(res.Err(), protocol.ErrUnreachable))
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	res := New(srv.URL, WithTimeout(50*time.Millisecond)).Execute(context.Background(), protocol.CmdPing, nil)
	assert.Equal(t, protocol.KindTransport, res.Kind)
	assert.Equal(t, "Request timeout", res.Message)
}

func TestPing(t *testing.T) {
	srv, seen := fakeService(t, func(string, json.RawMessage) string {
		return `{"result":{"addOnCommandResponse":{"message":"Dimension_Gh alive"}}}`
	})
	msg, res := New(srv.URL).Ping(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, "Dimension_Gh alive", msg)
	assert.JSONEq(t, `{}`, string((*seen)[0].Parameters.Params))
}

func TestPingUnexpectedFormat(t *testing.T) {
	srv, _ := fakeService(t, func(string, json.RawMessage) string {
		return `{"result":{"addOnCommandResponse":{"success":true}}}`
	})
	_, res := New(srv.URL).Ping(context.Background())
	assert.False(t, res.OK())
	assert.Equal(t, "unexpected response format", res.Message)
}

func TestGetPort(t *testing.T) {
	srv, _ := fakeService(t, func(string, json.RawMessage) string {
		return `{"result":{"addOnCommandResponse":{"port":19724}}}`
	})
	port, res := New(srv.URL).GetPort(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, 19724, port)
}

func TestCreateLinearDimension(t *testing.T) {
	srv, seen := fakeService(t, func(string, json.RawMessage) string {
		return `{"result":{"addOnCommandResponse":{"success":true,"distance":0.005}}}`
	})
	dist, res := New(srv.URL).CreateLinearDimension(context.Background(), protocol.CreateLinearDimensionParams{
		Point1: protocol.Point{}, Point2: protocol.Point{X: 0.005}, Handle1: "H1", Handle2: "H2",
	})
	require.True(t, res.OK())
	require.NotNil(t, dist)
	assert.InDelta(t, 0.005, *dist, 1e-12)

	var params protocol.CreateLinearDimensionParams
	require.NoError(t, json.Unmarshal((*seen)[0].Parameters.Params, &params))
	assert.Equal(t, "H1", params.Handle1)
	assert.Equal(t, "H2", params.Handle2)
}

func TestGetDimensions(t *testing.T) {
	srv, seen := fakeService(t, func(string, json.RawMessage) string {
		return `{"result":{"addOnCommandResponse":{"success":true,"dimensions":[
			{"guid":"D1","type":"linear","layer":"Dims","text":"5000","points":[{"x":0,"y":0,"z":0},{"x":5,"y":0,"z":0}]},
			{"guid":"D2","type":"linear","layer":"Dims","points":[{"x":0,"y":0,"z":0}]}
		]}}}`
	})
	dims, res := New(srv.URL).GetDimensions(context.Background(), "Dims")
	require.True(t, res.OK())
	require.Len(t, dims, 1)
	assert.Equal(t, "D1", dims[0].GUID)
	assert.Equal(t, models.Pt(5, 0, 0), dims[0].Points[1])
	assert.JSONEq(t, `{"filterLayer":"Dims"}`, string((*seen)[0].Parameters.Params))
}

func TestNamespaceOption(t *testing.T) {
	srv, seen := fakeService(t, func(string, json.RawMessage) string {
		return `{"result":{"addOnCommandResponse":{}}}`
	})
	New(srv.URL, WithNamespace("Custom")).Execute(context.Background(), "Anything", nil)
	assert.Equal(t, "Custom", (*seen)[0].Parameters.ID.Namespace)
}

type memJournal struct {
	entries []models.CommandEntry
}

func (j *memJournal) Log(_ context.Context, e models.CommandEntry) error {
	j.entries = append(j.entries, e)
	return nil
}

func TestJournalRecordsEveryCommand(t *testing.T) {
	srv, _ := fakeService(t, func(cmd string, _ json.RawMessage) string {
		if cmd == protocol.CmdUpdateHotspot {
			return `{"result":{"addOnCommandResponse":{"success":false}}}`
		}
		return `{"result":{"addOnCommandResponse":{"success":true,"hotspotGuid":"H1"}}}`
	})
	j := &memJournal{}
	c := New(srv.URL, WithJournal(j))

	c.CreateHotspot(context.Background(), 1, 1, "")
	c.UpdateHotspot(context.Background(), "H1", 2, 2)

	require.Len(t, j.entries, 2)
	assert.Equal(t, protocol.CmdCreateHotspot, j.entries[0].Command)
	assert.Equal(t, "ok", j.entries[0].Outcome)
	assert.Contains(t, j.entries[0].RequestBody, `"commandName":"CreateHotspot"`)
	assert.Contains(t, j.entries[0].ResponseBody, "H1")
	assert.Equal(t, "command", j.entries[1].Outcome)
}

func TestSpansPerCommand(t *testing.T) {
	srv, _ := fakeService(t, func(cmd string, _ json.RawMessage) string {
		if cmd == protocol.CmdUpdateHotspot {
			return `{"error":{"message":"nope"}}`
		}
		return `{"result":{"addOnCommandResponse":{"success":true,"hotspotGuid":"H1"}}}`
	})
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	c := New(srv.URL, WithTracerProvider(tp))

	c.CreateHotspot(context.Background(), 1, 1, "")
	c.UpdateHotspot(context.Background(), "H1", 2, 2)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "dimsync.command CreateHotspot", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("dimsync.outcome", "ok"))

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "nope", spans[1].Status().Description)
	assert.Contains(t, spans[1].Attributes(), attribute.String("dimsync.outcome", "envelope"))
}
