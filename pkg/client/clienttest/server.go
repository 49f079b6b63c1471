// Package clienttest provides an in-process fake of the remote add-on
// service for tests.
package clienttest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/pario-ai/dimsync/pkg/protocol"
)

// Layer is the layer fake dimensions are placed on.
const Layer = "Dimensions"

// Call is one command received by the fake.
type Call struct {
	Command string
	Params  json.RawMessage
}

// Server answers add-on commands the way the real service does, keeping
// markers and dimensions in memory.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	calls      []Call
	next       int
	hotspots   map[string]protocol.Point
	dimensions []protocol.DimensionEntry
	reject     map[string]bool
	bare       map[string]bool
}

// NewServer starts a fake service closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		hotspots: make(map[string]protocol.Point),
		reject:   make(map[string]bool),
		bare:     make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the URL a client should post to.
func (s *Server) BaseURL() string { return s.URL + "/" }

// RejectUpdates makes updates of handle fail at the command level.
func (s *Server) RejectUpdates(handle string) {
	s.mu.Lock()
	s.reject[handle] = true
	s.mu.Unlock()
}

// AnswerBare makes cmd reply with an empty add-on response, without a
// success field, and skip its effect.
func (s *Server) AnswerBare(cmd string) {
	s.mu.Lock()
	s.bare[cmd] = true
	s.mu.Unlock()
}

// Calls returns every command received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Commands returns the received command names in order.
func (s *Server) Commands() []string {
	calls := s.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Command
	}
	return out
}

// Count returns how many times cmd was received.
func (s *Server) Count(cmd string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Command == cmd {
			n++
		}
	}
	return n
}

// Hotspot returns the position of a created marker.
func (s *Server) Hotspot(handle string) (protocol.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.hotspots[handle]
	return p, ok
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command    string `json:"command"`
		Parameters struct {
			ID     protocol.CommandID `json:"addOnCommandId"`
			Params json.RawMessage    `json:"addOnCommandParameters"`
		} `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Command: req.Parameters.ID.Name, Params: req.Parameters.Params})
	reply := s.dispatch(req.Command, req.Parameters.ID, req.Parameters.Params)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

func ok(fields map[string]any) map[string]any {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["success"] = true
	return map[string]any{"result": map[string]any{"addOnCommandResponse": fields}}
}

func commandError(msg string) map[string]any {
	return map[string]any{"result": map[string]any{"addOnCommandResponse": map[string]any{
		"success": false,
		"error":   map[string]any{"message": msg},
	}}}
}

func outerError(msg string) map[string]any {
	return map[string]any{"error": map[string]any{"message": msg}}
}

func (s *Server) dispatch(command string, id protocol.CommandID, raw json.RawMessage) map[string]any {
	if command != protocol.Command {
		return outerError("unknown command " + command)
	}
	if id.Namespace != protocol.DefaultNamespace {
		return outerError("unknown namespace " + id.Namespace)
	}

	if s.bare[id.Name] {
		return map[string]any{"result": map[string]any{"addOnCommandResponse": map[string]any{}}}
	}

	switch id.Name {
	case protocol.CmdPing:
		return map[string]any{"result": map[string]any{"addOnCommandResponse": map[string]any{
			"message": "Dimension_Gh alive",
		}}}

	case protocol.CmdGetPort:
		u, _ := url.Parse(s.URL)
		port, _ := strconv.Atoi(u.Port())
		return ok(map[string]any{"port": port})

	case protocol.CmdCreateHotspot:
		var p protocol.CreateHotspotParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return commandError(err.Error())
		}
		s.next++
		h := fmt.Sprintf("H%d", s.next)
		s.hotspots[h] = protocol.Point{X: p.X, Y: p.Y}
		return ok(map[string]any{"hotspotGuid": h})

	case protocol.CmdUpdateHotspot:
		var p protocol.UpdateHotspotParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return commandError(err.Error())
		}
		if _, known := s.hotspots[p.Handle]; !known || s.reject[p.Handle] {
			return commandError("hotspot not found")
		}
		s.hotspots[p.Handle] = protocol.Point{X: p.X, Y: p.Y}
		return ok(nil)

	case protocol.CmdCreateLinearDimension:
		var p protocol.CreateLinearDimensionParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return commandError(err.Error())
		}
		_, ok1 := s.hotspots[p.Handle1]
		_, ok2 := s.hotspots[p.Handle2]
		if !ok1 || !ok2 {
			return commandError("hotspot not found")
		}
		d := math.Sqrt(sq(p.Point2.X-p.Point1.X) + sq(p.Point2.Y-p.Point1.Y) + sq(p.Point2.Z-p.Point1.Z))
		s.dimensions = append(s.dimensions, protocol.DimensionEntry{
			GUID:   fmt.Sprintf("D%d", len(s.dimensions)+1),
			Type:   "linear",
			Layer:  Layer,
			Text:   strconv.FormatFloat(d, 'f', 3, 64),
			Points: []protocol.Point{p.Point1, p.Point2},
		})
		return ok(map[string]any{"distance": d})

	case protocol.CmdGetDimensions:
		var p protocol.GetDimensionsParams
		_ = json.Unmarshal(raw, &p)
		out := []protocol.DimensionEntry{}
		for _, d := range s.dimensions {
			if p.FilterLayer == "" || p.FilterLayer == d.Layer {
				out = append(out, d)
			}
		}
		return ok(map[string]any{"dimensions": out})
	}
	return outerError("unknown add-on command " + id.Name)
}

func sq(v float64) float64 { return v * v }
