package mcp

import (
	"fmt"
	"strings"

	"github.com/pario-ai/dimsync/pkg/measure"
	"github.com/pario-ai/dimsync/pkg/models"
)

// shortID keeps the tail of long ids; v7 uuids share their leading
// timestamp digits.
func shortID(id string) string {
	if len(id) > 12 {
		return "..." + id[len(id)-8:]
	}
	if id == "" {
		return "-"
	}
	return id
}

func formatWarnings(b *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("\nWarnings:\n")
	for _, w := range warnings {
		fmt.Fprintf(b, "  - %s\n", w)
	}
}

// formatPairs formats generated pairs as a text table.
func formatPairs(pairs []*models.PointPair, warnings []string) string {
	var b strings.Builder
	if len(pairs) == 0 {
		b.WriteString("No point pairs generated.\n")
		formatWarnings(&b, warnings)
		return b.String()
	}
	fmt.Fprintf(&b, "%4s  %-30s %-30s %12s  %-11s %-11s\n",
		"#", "Point 1", "Point 2", "Distance", "Identity 1", "Identity 2")
	b.WriteString(strings.Repeat("-", 104) + "\n")
	for i, pp := range pairs {
		fmt.Fprintf(&b, "%4d  %-30s %-30s %12.3f  %-11s %-11s\n",
			i, pp.Point1, pp.Point2, pp.Distance(),
			shortID(string(pp.Identity1)), shortID(string(pp.Identity2)))
	}
	formatWarnings(&b, warnings)
	return b.String()
}

// formatReport formats a sync pass as a text table.
func formatReport(rep *measure.Report, warnings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Synchronized %d/%d pairs", rep.Succeeded(), len(rep.Outcomes))
	if rep.Forced {
		b.WriteString(" (forced)")
	}
	b.WriteString("\n")
	if len(rep.Outcomes) > 0 {
		fmt.Fprintf(&b, "%4s  %-4s %-10s %-10s %-10s %-10s %s\n",
			"#", "OK", "Marker 1", "Marker 2", "Action 1", "Action 2", "Message")
		b.WriteString(strings.Repeat("-", 90) + "\n")
		for _, o := range rep.Outcomes {
			ok := "no"
			if o.Success {
				ok = "yes"
			}
			var m1, m2 string
			if o.Pair != nil {
				m1, m2 = o.Pair.Marker1, o.Pair.Marker2
			}
			fmt.Fprintf(&b, "%4d  %-4s %-10s %-10s %-10s %-10s %s\n",
				o.Index, ok, shortID(m1), shortID(m2),
				o.Sync.Point1.Action, o.Sync.Point2.Action, o.Message)
		}
	}
	formatWarnings(&b, warnings)
	return b.String()
}

// formatDimensions formats remote dimensions as a text table.
func formatDimensions(dims []models.Dimension) string {
	if len(dims) == 0 {
		return "No dimensions found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-10s %-15s %-12s %-26s %-26s\n",
		"GUID", "Type", "Layer", "Text", "Point 1", "Point 2")
	b.WriteString(strings.Repeat("-", 132) + "\n")
	for _, d := range dims {
		fmt.Fprintf(&b, "%-38s %-10s %-15s %-12s %-26s %-26s\n",
			d.GUID, d.Type, d.Layer, d.Text, d.Points[0], d.Points[1])
	}
	return b.String()
}

// formatCacheStats formats cache stats as text, one block per cache.
func formatCacheStats(all []models.CacheStats) string {
	var b strings.Builder
	for i, stats := range all {
		if i > 0 {
			b.WriteString("\n")
		}
		total := stats.Hits + stats.Misses
		hitRate := float64(0)
		if total > 0 {
			hitRate = float64(stats.Hits) / float64(total) * 100
		}
		fmt.Fprintf(&b, "Cache Statistics (%s)\n"+
			"  Entries:  %d\n"+
			"  Hits:     %d\n"+
			"  Misses:   %d\n"+
			"  Hit Rate: %.1f%%\n",
			stats.Name, stats.Entries, stats.Hits, stats.Misses, hitRate)
	}
	return b.String()
}

// formatHistory formats journal entries as a text table.
func formatHistory(entries []models.CommandEntry) string {
	if len(entries) == 0 {
		return "No journal entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-26s %-10s %8s  %s\n",
		"Time", "Command", "Outcome", "Latency", "Message")
	b.WriteString(strings.Repeat("-", 90) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-20s %-26s %-10s %6dms  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Command, e.Outcome, e.LatencyMs, e.Message)
	}
	return b.String()
}

// formatHistoryStats formats journal counts as a text table.
func formatHistoryStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No journal entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-26s %-10s %8s\n", "Command", "Outcome", "Count")
	b.WriteString(strings.Repeat("-", 46) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-26s %-10s %8d\n", s.Command, s.Outcome, s.Count)
	}
	return b.String()
}
