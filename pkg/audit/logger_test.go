package audit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pario-ai/dimsync/pkg/models"
)

func tempCfg(t *testing.T) models.AuditConfig {
	t.Helper()
	return models.AuditConfig{
		Enabled:       true,
		DBPath:        filepath.Join(t.TempDir(), "audit_test.db"),
		RetentionDays: 30,
		MaxBodySize:   1024,
		Include:       []string{"requests", "responses"},
	}
}

func mustNew(t *testing.T, cfg models.AuditConfig) *Logger {
	t.Helper()
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleEntry() models.CommandEntry {
	return models.CommandEntry{
		ID:           "cmd-001",
		Namespace:    "DimensionGh",
		Command:      "CreateHotspot",
		Outcome:      "ok",
		RequestBody:  `{"command":"API.ExecuteAddOnCommand"}`,
		ResponseBody: `{"result":{"addOnCommandResponse":{"success":true,"hotspotGuid":"H1"}}}`,
		LatencyMs:    12,
		CreatedAt:    time.Now(),
	}
}

func TestLogAndQuery(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	if err := l.Log(ctx, sampleEntry()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{Command: "CreateHotspot"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID != "cmd-001" {
		t.Errorf("expected cmd-001, got %s", entries[0].ID)
	}
	if entries[0].LatencyMs != 12 {
		t.Errorf("expected latency 12, got %d", entries[0].LatencyMs)
	}
}

func TestInMemoryJournal(t *testing.T) {
	l := mustNew(t, models.AuditConfig{DBPath: ":memory:", Include: []string{"requests"}})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Log(ctx, models.CommandEntry{Command: "Ping", Outcome: "transport"}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	entries, err := l.Query(ctx, models.AuditQueryOpts{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Errorf("expected generated unique ids, got %q and %q", entries[0].ID, entries[1].ID)
	}
}

func TestQueryByIDAndOutcome(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	failed := sampleEntry()
	failed.ID = "cmd-002"
	failed.Outcome = "command"
	failed.Message = "hotspot not found"
	_ = l.Log(ctx, failed)

	entries, err := l.Query(ctx, models.AuditQueryOpts{ID: "cmd-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1, got %d", len(entries))
	}

	entries, err = l.Query(ctx, models.AuditQueryOpts{Outcome: "command"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "hotspot not found" {
		t.Fatalf("expected the failed entry, got %+v", entries)
	}
}

func TestQuerySinceAndLimit(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	old := sampleEntry()
	old.CreatedAt = time.Now().Add(-2 * time.Hour)
	_ = l.Log(ctx, old)
	for _, id := range []string{"cmd-a", "cmd-b"} {
		e := sampleEntry()
		e.ID = id
		_ = l.Log(ctx, e)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{Since: time.Now().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 recent entries, got %d", len(entries))
	}

	entries, err = l.Query(ctx, models.AuditQueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(entries))
	}
}

func TestBodyTruncation(t *testing.T) {
	cfg := tempCfg(t)
	cfg.MaxBodySize = 16
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	entry.RequestBody = strings.Repeat("x", 100)
	if err := l.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{ID: "cmd-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries[0].RequestBody) != 16 {
		t.Errorf("expected truncated body len 16, got %d", len(entries[0].RequestBody))
	}
}

func TestIncludeFiltering(t *testing.T) {
	cfg := tempCfg(t)
	cfg.Include = nil
	l := mustNew(t, cfg)
	ctx := context.Background()

	if err := l.Log(ctx, sampleEntry()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{ID: "cmd-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if entries[0].RequestBody != "" {
		t.Errorf("expected empty request body, got %q", entries[0].RequestBody)
	}
	if entries[0].ResponseBody != "" {
		t.Errorf("expected empty response body, got %q", entries[0].ResponseBody)
	}
}

func TestCleanup(t *testing.T) {
	cfg := tempCfg(t)
	cfg.RetentionDays = 0 // everything is old
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	entry.CreatedAt = time.Now().AddDate(0, 0, -1)
	_ = l.Log(ctx, entry)

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}
}

func TestStats(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	e2 := sampleEntry()
	e2.ID = "cmd-002"
	_ = l.Log(ctx, e2)
	e3 := sampleEntry()
	e3.ID = "cmd-003"
	e3.Command = "UpdateHotspot"
	e3.Outcome = "command"
	_ = l.Log(ctx, e3)

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(stats))
	}
	if stats[0].Command != "CreateHotspot" || stats[0].Count != 2 {
		t.Errorf("expected CreateHotspot x2, got %+v", stats[0])
	}
	if stats[1].Outcome != "command" || stats[1].Count != 1 {
		t.Errorf("expected UpdateHotspot/command x1, got %+v", stats[1])
	}
}

func TestNilLoggerSafe(t *testing.T) {
	var l *Logger
	if err := l.Log(context.Background(), sampleEntry()); err != nil {
		t.Errorf("nil logger should be safe: %v", err)
	}
}

func TestNewInvalidPath(t *testing.T) {
	cfg := models.AuditConfig{
		Enabled: true,
		DBPath:  filepath.Join(os.TempDir(), "nonexistent", "deep", "path", "audit.db"),
	}
	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for invalid path")
	}
}
