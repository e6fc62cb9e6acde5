package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"claudewatch/internal/journal"
	"claudewatch/internal/runtime"
	"claudewatch/internal/settings"
	"claudewatch/internal/types"
	"claudewatch/internal/watcher"
)

func newTestService(t *testing.T) (*MCPService, *runtime.Runtime) {
	t.Helper()
	rt := runtime.New(2)
	svc := NewMCPService(0, t.TempDir(), rt)
	return svc, rt
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text, result.IsError
}

func seedSlot(rt *runtime.Runtime) {
	rt.Emit(types.NewFileEnvelope(0, "/p/a.jsonl"))
	rt.Emit(types.NewEventEnvelope(types.SlotEvent{
		Event: types.Event{Kind: types.KindUser, Content: "fix the tests", IsComplete: true},
		Slot:  0,
	}))
	rt.Emit(types.NewEventEnvelope(types.SlotEvent{
		Event: types.Event{
			Kind:       types.KindText,
			Content:    "Done.",
			MessageID:  "m1",
			IsComplete: true,
			Usage:      &types.Usage{InputTokens: 1500, OutputTokens: 20},
		},
		Slot: 0,
	}))
	rt.Emit(types.NewNoFileEnvelope(1))
}

func TestListSlots(t *testing.T) {
	svc, rt := newTestService(t)
	seedSlot(rt)

	labels, err := settings.NewLabelStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	labels.SetLabel("/p/a.jsonl", "flaky tests")
	svc.SetLabels(labels)

	text, isErr := callTool(t, svc.handleListSlots, nil)
	if isErr {
		t.Fatalf("unexpected error result: %s", text)
	}
	for _, want := range []string{"slot 0: /p/a.jsonl [flaky tests]", "2 events buffered", "1.5k tokens", "slot 1: no session"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestListSlotsWatcherState(t *testing.T) {
	svc, rt := newTestService(t)
	seedSlot(rt)
	svc.SetStatusFunc(func() []watcher.SlotStatus {
		return []watcher.SlotStatus{
			{Slot: 0, Path: "/p/a.jsonl", State: "live", Cursor: 4096, MergeKeys: 1},
			{Slot: 1, State: "no-file"},
		}
	})

	text, _ := callTool(t, svc.handleListSlots, nil)
	for _, want := range []string{"live at byte 4096, 1 open messages", "slot 1: no session (no-file)"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunStopsWithContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !svc.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("server never started")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if svc.IsRunning() {
		t.Error("still running after cancel")
	}
}

func TestRecentEventsFromRuntime(t *testing.T) {
	svc, rt := newTestService(t)
	seedSlot(rt)

	text, isErr := callTool(t, svc.handleRecentEvents, map[string]any{"slot": float64(0), "limit": float64(1)})
	if isErr {
		t.Fatalf("unexpected error result: %s", text)
	}
	if text != "[text] Done." {
		t.Errorf("text = %q", text)
	}

	text, _ = callTool(t, svc.handleRecentEvents, map[string]any{"slot": float64(1)})
	if text != "No events for slot 1." {
		t.Errorf("empty slot text = %q", text)
	}
}

func TestRecentEventsValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing slot", map[string]any{}, "slot is required"},
		{"out of range", map[string]any{"slot": float64(7)}, "out of range"},
		{"negative", map[string]any{"slot": float64(-1)}, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := callTool(t, svc.handleRecentEvents, tt.args)
			if !isErr || !strings.Contains(text, tt.want) {
				t.Errorf("got (%q, %v), want error containing %q", text, isErr, tt.want)
			}
		})
	}
}

func TestRecentEventsFromJournal(t *testing.T) {
	svc, _ := newTestService(t)
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	svc.SetJournal(store)

	store.Append(types.NewFileEnvelope(1, "/p/b.jsonl"))
	store.Append(types.NewEventEnvelope(types.SlotEvent{
		Event:     types.Event{Kind: types.KindThinking, Content: "hmm…", MessageID: "m2"},
		Slot:      1,
		IsHistory: true,
	}))

	text, isErr := callTool(t, svc.handleRecentEvents, map[string]any{"slot": float64(1)})
	if isErr {
		t.Fatalf("unexpected error result: %s", text)
	}
	want := "-- following /p/b.jsonl\n[thinking] hmm… (streaming) (history)"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestUsageSummary(t *testing.T) {
	svc, rt := newTestService(t)
	seedSlot(rt)

	text, _ := callTool(t, svc.handleUsageSummary, nil)
	if !strings.Contains(text, "slot 0: in 1.5k, out 20") || !strings.Contains(text, "usage command: no sample") {
		t.Errorf("summary without sample:\n%s", text)
	}

	rt.Emit(types.NewUsageEnvelope(types.UsageSample{TotalTokens: 2_500_000, TokensPerMinute: 300}))
	text, _ = callTool(t, svc.handleUsageSummary, nil)
	if !strings.Contains(text, "usage command: 2.5M tokens") || !strings.Contains(text, "300 tokens/min") {
		t.Errorf("summary with sample:\n%s", text)
	}
}

func TestLabelSession(t *testing.T) {
	svc, _ := newTestService(t)

	text, isErr := callTool(t, svc.handleLabelSession, map[string]any{"path": "/p/a.jsonl", "label": "x"})
	if !isErr || !strings.Contains(text, "disabled") {
		t.Fatalf("label_session should be disabled by default, got %q", text)
	}

	avail := svc.GetToolAvailability().GetAvailability()
	avail.LabelSession = true
	if err := svc.GetToolAvailability().SaveAvailability(avail); err != nil {
		t.Fatal(err)
	}

	text, isErr = callTool(t, svc.handleLabelSession, map[string]any{"path": "/p/a.jsonl", "label": "x"})
	if !isErr || !strings.Contains(text, "not available") {
		t.Errorf("without label store got %q", text)
	}

	labels, err := settings.NewLabelStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc.SetLabels(labels)

	if _, isErr := callTool(t, svc.handleLabelSession, map[string]any{"path": "/p/a.jsonl", "label": " auth work "}); isErr {
		t.Fatal("label_session failed")
	}
	if got := labels.Label("/p/a.jsonl"); got != "auth work" {
		t.Errorf("label = %q", got)
	}

	callTool(t, svc.handleLabelSession, map[string]any{"path": "/p/a.jsonl", "label": ""})
	if got := labels.Label("/p/a.jsonl"); got != "" {
		t.Errorf("label after removal = %q", got)
	}
}

func TestToolSettingsPersist(t *testing.T) {
	dir := t.TempDir()
	m := NewToolAvailabilityManager(dir)
	m.SaveAvailability(ToolAvailability{ListSlots: true})

	reloaded := NewToolAvailabilityManager(dir)
	if !reloaded.IsEnabled(ToolListSlots) || reloaded.IsEnabled(ToolRecentEvents) {
		t.Errorf("availability not persisted: %+v", reloaded.GetAvailability())
	}
	if reloaded.IsEnabled("AgentQuery") {
		t.Error("unknown tool reported enabled")
	}

	ti := NewToolInstructionsManager(dir)
	custom := ti.GetInstructions()
	custom.ListSlots = "custom"
	custom.UsageSummary = ""
	if err := ti.SaveInstructions(custom); err != nil {
		t.Fatal(err)
	}
	got := NewToolInstructionsManager(dir).GetInstructions()
	if got.ListSlots != "custom" {
		t.Errorf("ListSlots = %q", got.ListSlots)
	}
	if got.UsageSummary != DefaultToolInstructions().UsageSummary {
		t.Error("missing instruction not filled from defaults")
	}
}

func TestToolSettingsBadFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ToolAvailabilityFile), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	m := NewToolAvailabilityManager(dir)
	if got, want := m.GetAvailability(), *DefaultToolAvailability(); got != want {
		t.Errorf("availability = %+v, want defaults %+v", got, want)
	}

	NewToolInstructionsManager(dir)
	if _, err := os.Stat(filepath.Join(dir, ToolInstructionsFile)); err != nil {
		t.Errorf("defaults not written on first use: %v", err)
	}
}

func TestBuildServerRegistersTools(t *testing.T) {
	svc, _ := newTestService(t)
	srv := svc.buildServer()
	tools := srv.ListTools()
	for _, name := range []string{ToolListSlots, ToolRecentEvents, ToolUsageSummary, ToolLabelSession} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestDefaultToolInstructionsComplete(t *testing.T) {
	ti := DefaultToolInstructions()
	for name, text := range map[string]string{
		ToolListSlots:    ti.ListSlots,
		ToolRecentEvents: ti.RecentEvents,
		ToolUsageSummary: ti.UsageSummary,
		ToolLabelSession: ti.LabelSession,
	} {
		if strings.TrimSpace(text) == "" {
			t.Errorf("no default instruction for %s", name)
		}
	}
}
