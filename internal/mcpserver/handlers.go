package mcpserver

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"claudewatch/internal/types"
	"claudewatch/internal/watcher"
)

func disabledResult(tool string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s tool is disabled. Enable it in %s.", tool, ToolAvailabilityFile))
}

// handleListSlots handles the list_slots tool call
func (s *MCPService) handleListSlots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.toolAvailability.IsEnabled(ToolListSlots) {
		return disabledResult(ToolListSlots), nil
	}

	statuses := map[int]watcher.SlotStatus{}
	if s.status != nil {
		for _, st := range s.status() {
			statuses[st.Slot] = st
		}
	}

	var sb strings.Builder
	for _, slot := range s.runtime.Slots() {
		st, watched := statuses[slot.Slot]
		if !slot.HasFile {
			fmt.Fprintf(&sb, "slot %d: no session", slot.Slot)
			if watched {
				fmt.Fprintf(&sb, " (%s)", st.State)
			}
			sb.WriteString("\n")
			continue
		}
		fmt.Fprintf(&sb, "slot %d: %s", slot.Slot, slot.Path)
		if label := s.label(slot.Path); label != "" {
			fmt.Fprintf(&sb, " [%s]", label)
		}
		fmt.Fprintf(&sb, "\n  %d events buffered, %d emitted, %s tokens, updated %s\n",
			slot.Buffered, slot.Emitted, formatTokens(slot.Usage.Total()), formatAge(slot.UpdatedAt))
		if watched {
			fmt.Fprintf(&sb, "  %s at byte %d, %d open messages\n", st.State, st.Cursor, st.MergeKeys)
		}
	}
	if sb.Len() == 0 {
		return mcp.NewToolResultText("No slots configured."), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleRecentEvents handles the recent_events tool call
// Reads from the journal when one is open, otherwise from the slot buffer
func (s *MCPService) handleRecentEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.toolAvailability.IsEnabled(ToolRecentEvents) {
		return disabledResult(ToolRecentEvents), nil
	}

	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments format"), nil
	}
	slotArg, ok := args["slot"].(float64)
	if !ok {
		return mcp.NewToolResultError("slot is required"), nil
	}
	slot := int(slotArg)
	if count := len(s.runtime.Slots()); slot < 0 || slot >= count {
		return mcp.NewToolResultError(fmt.Sprintf("slot %d out of range (0-%d)", slot, count-1)), nil
	}

	limit := DefaultRecentLimit
	if l, ok := args["limit"].(float64); ok && l >= 1 {
		limit = min(int(l), MaxRecentLimit)
	}

	var lines []string
	if s.journal != nil {
		entries, err := s.journal.Recent(slot, limit)
		if err != nil {
			log.Printf("[mcp] journal read for slot %d: %v", slot, err)
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read journal: %v", err)), nil
		}
		for _, entry := range entries {
			switch {
			case entry.Event != nil:
				lines = append(lines, formatEvent(*entry.Event))
			case entry.Type == string(types.EnvelopeFile):
				lines = append(lines, "-- following "+entry.Path)
			case entry.Type == string(types.EnvelopeNoFile):
				lines = append(lines, "-- no session")
			}
		}
	} else {
		for _, ev := range s.runtime.Recent(slot, limit) {
			lines = append(lines, formatEvent(ev))
		}
	}

	if len(lines) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No events for slot %d.", slot)), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// handleUsageSummary handles the usage_summary tool call
func (s *MCPService) handleUsageSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.toolAvailability.IsEnabled(ToolUsageSummary) {
		return disabledResult(ToolUsageSummary), nil
	}

	var sb strings.Builder
	var total types.Usage
	for _, slot := range s.runtime.Slots() {
		if !slot.HasFile {
			continue
		}
		u := slot.Usage
		fmt.Fprintf(&sb, "slot %d: in %s, out %s, cache write %s, cache read %s",
			slot.Slot, formatTokens(u.InputTokens), formatTokens(u.OutputTokens),
			formatTokens(u.CacheCreationTokens), formatTokens(u.CacheReadTokens))
		if u.CostUSD > 0 {
			fmt.Fprintf(&sb, ", $%.2f", u.CostUSD)
		}
		sb.WriteString("\n")

		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
		total.CacheCreationTokens += u.CacheCreationTokens
		total.CacheReadTokens += u.CacheReadTokens
		total.CostUSD += u.CostUSD
	}
	fmt.Fprintf(&sb, "all slots: %s tokens", formatTokens(total.Total()))
	if total.CostUSD > 0 {
		fmt.Fprintf(&sb, ", $%.2f", total.CostUSD)
	}
	sb.WriteString("\n")

	if sample, ok := s.runtime.LatestUsage(); ok {
		fmt.Fprintf(&sb, "usage command: %s tokens, $%.2f total; %.0f tokens/min, $%.2f/hour (%s)\n",
			formatTokens(sample.TotalTokens), sample.TotalCost,
			sample.TokensPerMinute, sample.CostPerHour, formatAge(sample.At))
	} else {
		sb.WriteString("usage command: no sample\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleLabelSession handles the label_session tool call
func (s *MCPService) handleLabelSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.toolAvailability.IsEnabled(ToolLabelSession) {
		return disabledResult(ToolLabelSession), nil
	}
	if s.labels == nil {
		return mcp.NewToolResultError("Session labels are not available"), nil
	}

	path, err := req.RequireString("path")
	if err != nil || path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	args, _ := req.Params.Arguments.(map[string]any)
	label, _ := args["label"].(string)
	label = strings.TrimSpace(label)

	if err := s.labels.SetLabel(path, label); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save label: %v", err)), nil
	}
	if label == "" {
		return mcp.NewToolResultText("Label removed from " + path), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Labeled %s as %q", path, label)), nil
}

// label returns the session label for path, if a label store is set.
func (s *MCPService) label(path string) string {
	if s.labels == nil {
		return ""
	}
	return s.labels.Label(path)
}

// =============================================================================
// FORMATTING
// =============================================================================

func formatEvent(ev types.SlotEvent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", ev.Kind, ev.Content)
	if ev.Kind.Mergeable() && !ev.IsComplete {
		sb.WriteString(" (streaming)")
	}
	if ev.IsHistory {
		sb.WriteString(" (history)")
	}
	return sb.String()
}

func formatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t).Round(time.Second)
	if d < time.Second {
		return "just now"
	}
	return d.String() + " ago"
}
