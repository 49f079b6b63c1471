package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pario-ai/dimsync/pkg/input"
	"github.com/pario-ai/dimsync/pkg/measure"
	"github.com/pario-ai/dimsync/pkg/models"
)

// Tool argument structs.

type syncArgs struct {
	input.Document
	Force bool `json:"force"`
}

type dimensionsArgs struct {
	Layer string `json:"layer"`
}

type historyArgs struct {
	Command string `json:"command"`
	Outcome string `json:"outcome"`
	Since   string `json:"since"`
	Limit   int    `json:"limit"`
	Summary bool   `json:"summary"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"dimsync_ping":        handlePing,
	"dimsync_pairs":       handlePairs,
	"dimsync_sync":        handleSync,
	"dimsync_dimensions":  handleDimensions,
	"dimsync_cache_stats": handleCacheStats,
	"dimsync_history":     handleHistory,
}

var pointSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"x": map[string]any{"type": "number"},
		"y": map[string]any{"type": "number"},
		"z": map[string]any{"type": "number"},
	},
}

func pointList(desc string) map[string]any {
	return map[string]any{"type": "array", "items": pointSchema, "description": desc}
}

func geometryProperties() map[string]any {
	return map[string]any{
		"instance": map[string]any{
			"type":        "string",
			"description": "Generator instance key; identities are stable per instance (default \"default\")",
		},
		"mode": map[string]any{
			"type":        "string",
			"enum":        []string{"sequence", "cross", "curves"},
			"description": "Sampling mode (optional, inferred from the fields present)",
		},
		"points":           pointList("Point list for sequence mode"),
		"reference_points": pointList("Reference points for cross mode"),
		"targets":          pointList("Target points for cross mode"),
		"curve1":           pointList("Reference polyline vertices for curves mode"),
		"curve2":           pointList("Target polyline vertices for curves mode"),
		"step": map[string]any{
			"type":        "number",
			"description": "Arc-length step along curve1 (curves mode; 0 emits only the start pair)",
		},
	}
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "dimsync_ping",
		Description: "Check that the remote add-on service is reachable.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "dimsync_pairs",
		Description: "Generate point pairs from points or curves without touching the remote document.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": geometryProperties(),
		},
	},
	{
		Name:        "dimsync_sync",
		Description: "Generate point pairs and synchronize their markers and linear dimensions with the remote document.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": func() map[string]any {
				p := geometryProperties()
				p["offset"] = map[string]any{
					"type":        "number",
					"description": "Dimension line offset (optional, overrides the configured offset)",
				}
				p["force"] = map[string]any{
					"type":        "boolean",
					"description": "Update every marker on this pass even when unchanged",
				}
				return p
			}(),
		},
	},
	{
		Name:        "dimsync_dimensions",
		Description: "List the linear dimensions in the remote document, optionally on one layer.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"layer": map[string]any{
					"type":        "string",
					"description": "Filter by layer (optional)",
				},
			},
		},
	},
	{
		Name:        "dimsync_cache_stats",
		Description: "Show marker handle and identity cache statistics (entries, hits, misses, hit rate).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "dimsync_history",
		Description: "Search the remote command journal with optional filters.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "Filter by command name (optional)",
				},
				"outcome": map[string]any{
					"type":        "string",
					"enum":        []string{"ok", "transport", "envelope", "command"},
					"description": "Filter by outcome (optional)",
				},
				"since": map[string]any{
					"type":        "string",
					"description": "Start date in YYYY-MM-DD format (optional)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum entries to return (optional, default 100)",
				},
				"summary": map[string]any{
					"type":        "boolean",
					"description": "Show counts per command and outcome instead of entries",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func handlePing(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	msg, res := s.remote.Ping(ctx)
	if !res.OK() {
		return errorResult("Ping failed: " + res.Describe())
	}
	return textResult("Service alive: " + msg)
}

func decodeDocument(rawArgs json.RawMessage, doc *input.Document, into any) error {
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, into); err != nil {
			return err
		}
	}
	doc.Normalize()
	return doc.Validate()
}

func handlePairs(_ context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var doc input.Document
	if err := decodeDocument(rawArgs, &doc, &doc); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	res, err := doc.Generate(s.generator(doc.Instance))
	if err != nil {
		return errorResult("Error generating pairs: " + err.Error())
	}
	return textResult(formatPairs(res.Pairs, res.Warnings))
}

func handleSync(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args syncArgs
	if err := decodeDocument(rawArgs, &args.Document, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	res, err := args.Generate(s.generator(args.Instance))
	if err != nil {
		return errorResult("Error generating pairs: " + err.Error())
	}
	if args.Force {
		s.runner.Trigger().Raise()
	}
	var opts []measure.RunOption
	if args.Offset != nil {
		opts = append(opts, measure.WithOffset(*args.Offset))
	}
	rep := s.runner.Run(ctx, res.Pairs, opts...)
	return textResult(formatReport(rep, res.Warnings))
}

func handleDimensions(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args dimensionsArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	dims, res := s.remote.GetDimensions(ctx, args.Layer)
	if !res.OK() {
		return errorResult("Error fetching dimensions: " + res.Describe())
	}
	return textResult(formatDimensions(dims))
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	var statters []CacheStatter
	if s.handles != nil {
		statters = append(statters, s.handles)
	}
	if s.ids != nil {
		statters = append(statters, s.ids)
	}

	var all []models.CacheStats
	var errs []error
	for _, c := range statters {
		st, err := c.Stats()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, st)
	}
	if err := errors.Join(errs...); err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	if len(all) == 0 {
		return textResult("Cache is not configured.")
	}
	return textResult(formatCacheStats(all))
}

func handleHistory(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.history == nil {
		return textResult("Command journal is not enabled.")
	}
	var args historyArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	if args.Summary {
		stats, err := s.history.Stats(ctx)
		if err != nil {
			return errorResult("Error fetching journal stats: " + err.Error())
		}
		return textResult(formatHistoryStats(stats))
	}

	opts := models.AuditQueryOpts{
		Command: args.Command,
		Outcome: args.Outcome,
		Limit:   args.Limit,
	}
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		opts.Since = t
	}

	entries, err := s.history.Query(ctx, opts)
	if err != nil {
		return errorResult("Error searching command journal: " + err.Error())
	}
	return textResult(formatHistory(entries))
}
