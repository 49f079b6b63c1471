package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pario-ai/dimsync/pkg/generator"
	"github.com/pario-ai/dimsync/pkg/geometry"
	"github.com/pario-ai/dimsync/pkg/identity"
	"github.com/pario-ai/dimsync/pkg/measure"
	"github.com/pario-ai/dimsync/pkg/models"
	"github.com/pario-ai/dimsync/pkg/protocol"
)

// CacheStatter provides cache statistics without coupling to a concrete cache implementation.
type CacheStatter interface {
	Stats() (models.CacheStats, error)
}

// Remote is the subset of the add-on client the bridge calls directly.
type Remote interface {
	Ping(ctx context.Context) (string, protocol.Result)
	GetDimensions(ctx context.Context, layer string) ([]models.Dimension, protocol.Result)
}

// History reads the command journal.
type History interface {
	Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.CommandEntry, error)
	Stats(ctx context.Context) ([]models.AuditStat, error)
}

// Options wires a Server. Remote, Identities and Runner are required;
// Handles and History may be nil.
type Options struct {
	Remote     Remote
	Identities *identity.Allocator
	Runner     *measure.Runner
	Handles    CacheStatter
	History    History
	Plane      geometry.Plane
	Logger     *slog.Logger
	Version    string
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	remote  Remote
	ids     *identity.Allocator
	runner  *measure.Runner
	handles CacheStatter
	history History
	plane   geometry.Plane
	logger  *slog.Logger
	version string

	mu         sync.Mutex
	generators map[string]*generator.Generator
}

// New creates a new MCP Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		remote:     opts.Remote,
		ids:        opts.Identities,
		runner:     opts.Runner,
		handles:    opts.Handles,
		history:    opts.History,
		plane:      opts.Plane,
		logger:     logger,
		version:    opts.Version,
		generators: make(map[string]*generator.Generator),
	}
}

// generator returns the generator for instance, creating it on first use so
// identities stay stable across calls naming the same instance.
func (s *Server) generator(instance string) *generator.Generator {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.generators[instance]
	if !ok {
		g = generator.New(instance, s.ids, generator.WithPlane(s.plane), generator.WithLogger(s.logger))
		s.generators[instance] = g
	}
	return g
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 8*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, Response{
				JSONRPC: jsonrpcVersion,
				Error:   &RPCError{Code: CodeParseError, Message: "parse error"},
			})
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp == nil {
			continue
		}
		s.writeResponse(w, *resp)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != jsonrpcVersion || req.Method == "" {
		return &Response{
			JSONRPC: jsonrpcVersion,
			ID:      req.ID,
			Error:   &RPCError{Code: CodeInvalidRequest, Message: "invalid request: jsonrpc must be 2.0 and method is required"},
		}
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return &Response{
			JSONRPC: jsonrpcVersion,
			ID:      req.ID,
			Error:   &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)},
		}
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	return &Response{
		JSONRPC: jsonrpcVersion,
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: "2024-11-05",
			ServerInfo:      ServerInfo{Name: "dimsync", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		},
	}
}

func (s *Server) handleToolsList(req *Request) *Response {
	return &Response{
		JSONRPC: jsonrpcVersion,
		ID:      req.ID,
		Result:  ToolsListResult{Tools: allTools},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: jsonrpcVersion,
			ID:      req.ID,
			Error:   &RPCError{Code: CodeInvalidParams, Message: "invalid params"},
		}
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return &Response{
			JSONRPC: jsonrpcVersion,
			ID:      req.ID,
			Result: ToolCallResult{
				Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("unknown tool: %s", params.Name)}},
				IsError: true,
			},
		}
	}

	s.logger.Debug("tool call", "tool", params.Name)
	result := handler(ctx, s, params.Arguments)
	return &Response{
		JSONRPC: jsonrpcVersion,
		ID:      req.ID,
		Result:  result,
	}
}

func (s *Server) writeResponse(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("mcp: marshal response", "error", err)
		data, _ = json.Marshal(Response{
			JSONRPC: jsonrpcVersion,
			ID:      resp.ID,
			Error:   &RPCError{Code: CodeInternalError, Message: "internal error: " + err.Error()},
		})
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error("mcp: write response", "error", err)
	}
}
