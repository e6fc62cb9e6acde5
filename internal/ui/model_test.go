package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"claudewatch/internal/runtime"
	"claudewatch/internal/settings"
	"claudewatch/internal/types"
)

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func emitEvent(rt *runtime.Runtime, slot int, ev types.Event, history bool) {
	rt.Emit(types.NewEventEnvelope(types.SlotEvent{Event: ev, Slot: slot, IsHistory: history}))
}

func newTestModel(t *testing.T, slots int) (Model, *runtime.Runtime) {
	t.Helper()
	rt := runtime.New(slots)
	m := New(rt, nil, nil)
	m.width = 80
	m.height = 24
	return m, rt
}

func TestNewModel(t *testing.T) {
	m, _ := newTestModel(t, 2)
	if len(m.panes) != 2 {
		t.Fatalf("panes = %d, want 2", len(m.panes))
	}
	if m.focused != 0 {
		t.Errorf("focused = %d", m.focused)
	}
	view := m.View()
	if !strings.Contains(view, "SLOT 0 no session") || !strings.Contains(view, "SLOT 1 no session") {
		t.Errorf("empty slots not shown:\n%s", view)
	}
}

func TestEnvelopeRefreshesPanes(t *testing.T) {
	m, rt := newTestModel(t, 1)
	rt.Emit(types.NewFileEnvelope(0, "/p/3f2a9c.jsonl"))
	emitEvent(rt, 0, types.Event{Kind: types.KindUser, Content: "add a flag", IsComplete: true}, false)
	emitEvent(rt, 0, types.Event{Kind: types.KindToolUse, Content: "Read(main.go)", MessageID: "m1", ToolName: "Read"}, false)

	updated, cmd := m.Update(EnvelopeMsg{})
	model := updated.(Model)
	if cmd != nil {
		t.Error("nil subscription should not schedule a read")
	}

	view := model.View()
	for _, want := range []string{"SLOT 0 LIVE 3f2a9c", "> add a flag", "⚙ Read(main.go) ▌"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSubscriptionDrivesUpdates(t *testing.T) {
	rt := runtime.New(1)
	sub, cancel := rt.Subscribe(4)
	m := New(rt, sub, nil)

	rt.Emit(types.NewFileEnvelope(0, "/p/a.jsonl"))
	msg := m.Init()()
	env, ok := msg.(EnvelopeMsg)
	if !ok || env.Envelope.Type != types.EnvelopeFile {
		t.Fatalf("Init read %#v", msg)
	}
	updated, cmd := m.Update(msg)
	if cmd == nil {
		t.Error("expected next read to be scheduled")
	}
	if !updated.(Model).panes[0].slot.HasFile {
		t.Error("pane not refreshed from runtime")
	}

	cancel()
	closed := cmd()
	if _, ok := closed.(SubscriptionClosedMsg); !ok {
		t.Fatalf("after cancel read %#v", closed)
	}
	updated, _ = updated.Update(closed)
	if !updated.(Model).closed {
		t.Error("model not marked closed")
	}
}

func TestUsageInHeader(t *testing.T) {
	m, rt := newTestModel(t, 1)
	rt.Emit(types.NewUsageEnvelope(types.UsageSample{TotalTokens: 12_500, TokensPerMinute: 420, CostPerHour: 1.5}))
	updated, _ := m.Update(EnvelopeMsg{})
	header := strings.Split(updated.(Model).View(), "\n")[0]
	if !strings.Contains(header, "12.5k tok · 420 tok/min · $1.50/h") {
		t.Errorf("header = %q", header)
	}
}

func TestFocusAndHistoryKeys(t *testing.T) {
	m, rt := newTestModel(t, 3)
	rt.Emit(types.NewFileEnvelope(0, "/p/a.jsonl"))
	emitEvent(rt, 0, types.Event{Kind: types.KindUser, Content: "old prompt", IsComplete: true}, true)
	emitEvent(rt, 0, types.Event{Kind: types.KindUser, Content: "new prompt", IsComplete: true}, false)
	updated, _ := m.Update(EnvelopeMsg{})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := updated.(Model).focused; got != 1 {
		t.Errorf("after tab focused = %d", got)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if got := updated.(Model).focused; got != 2 {
		t.Errorf("after shift+tab focused = %d", got)
	}

	if !strings.Contains(m.View(), "old prompt") {
		t.Error("history hidden by default")
	}
	updated, _ = m.Update(runeKey("h"))
	view := updated.(Model).View()
	if strings.Contains(view, "old prompt") || !strings.Contains(view, "new prompt") {
		t.Errorf("history toggle failed:\n%s", view)
	}

	_, cmd := m.Update(runeKey("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not return tea.Quit")
	}
}

func TestScrollClampsAndReturnsLive(t *testing.T) {
	m, rt := newTestModel(t, 1)
	m.height = 8
	rt.Emit(types.NewFileEnvelope(0, "/p/a.jsonl"))
	for i := 0; i < 20; i++ {
		emitEvent(rt, 0, types.Event{Kind: types.KindUser, Content: fmt.Sprintf("prompt %02d", i), IsComplete: true}, false)
	}
	updated, _ := m.Update(EnvelopeMsg{})
	m = updated.(Model)

	if view := m.View(); !strings.Contains(view, "prompt 19") || strings.Contains(view, "prompt 00") {
		t.Fatalf("live view wrong:\n%s", view)
	}

	for i := 0; i < 100; i++ {
		updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
		m = updated.(Model)
	}
	visible := m.paneHeight() - 1
	if want := 20 - visible; m.panes[0].scroll != want {
		t.Errorf("scroll = %d, want clamp at %d", m.panes[0].scroll, want)
	}
	view := m.View()
	if !strings.Contains(view, "prompt 00") || !strings.Contains(view, "SCROLL") {
		t.Errorf("scrolled view wrong:\n%s", view)
	}

	updated, _ = m.Update(runeKey("G"))
	if got := updated.(Model).panes[0].scroll; got != 0 {
		t.Errorf("after G scroll = %d", got)
	}
}

func TestRenderEventWidth(t *testing.T) {
	long := strings.Repeat("word ", 100)
	tests := []struct {
		name     string
		ev       types.SlotEvent
		maxLines int
	}{
		{"user", types.SlotEvent{Event: types.Event{Kind: types.KindUser, Content: long}}, 1},
		{"tool", types.SlotEvent{Event: types.Event{Kind: types.KindToolUse, Content: "Bash(" + long + ")", IsComplete: true}}, 1},
		{"text wraps", types.SlotEvent{Event: types.Event{Kind: types.KindText, Content: long, IsComplete: true}}, maxTextLines},
		{"multiline text", types.SlotEvent{Event: types.Event{Kind: types.KindText, Content: "a\nb\nc", IsComplete: true}}, 1},
		{"history", types.SlotEvent{Event: types.Event{Kind: types.KindThinking, Content: long}, IsHistory: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := renderEvent(tt.ev, 40)
			if len(lines) == 0 || len(lines) > tt.maxLines {
				t.Fatalf("got %d lines, want 1..%d", len(lines), tt.maxLines)
			}
			for _, line := range lines {
				if w := lipgloss.Width(line); w > 40 {
					t.Errorf("line width %d > 40: %q", w, line)
				}
			}
		})
	}
}

func TestLabelShownInPaneTitle(t *testing.T) {
	rt := runtime.New(1)
	labels, err := settings.NewLabelStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	labels.SetLabel("/p/a.jsonl", "release prep")
	rt.Emit(types.NewFileEnvelope(0, "/p/a.jsonl"))

	m := New(rt, nil, labels)
	if !strings.Contains(m.View(), "[release prep]") {
		t.Errorf("label missing:\n%s", m.View())
	}
}
