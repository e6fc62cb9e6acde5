// Package ui is the terminal dashboard: one pane per slot, fed by a runtime
// subscription.
package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	tea "github.com/charmbracelet/bubbletea"

	"claudewatch/internal/runtime"
	"claudewatch/internal/settings"
	"claudewatch/internal/types"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// events fetched per pane on refresh
	paneFetch = 200
	// wrapped lines shown for one assistant text event
	maxTextLines = 3
	minPaneLines = 3
)

// EnvelopeMsg wraps an envelope read from the runtime subscription.
type EnvelopeMsg struct {
	Envelope types.Envelope
}

// SubscriptionClosedMsg is sent when the runtime subscription ends.
type SubscriptionClosedMsg struct{}

type pane struct {
	slot   runtime.SlotSnapshot
	events []types.SlotEvent
	scroll int // display lines above the live bottom; 0 follows new events
}

// Model is the root bubbletea model for the dashboard.
type Model struct {
	rt     *runtime.Runtime
	sub    <-chan types.Envelope
	labels *settings.LabelStore

	panes       []pane
	focused     int
	hideHistory bool
	usage       *types.UsageSample
	closed      bool

	width  int
	height int
}

// New creates a dashboard over rt. sub is a subscription on the same runtime;
// labels may be nil.
func New(rt *runtime.Runtime, sub <-chan types.Envelope, labels *settings.LabelStore) Model {
	m := Model{
		rt:     rt,
		sub:    sub,
		labels: labels,
	}
	m.refresh()
	return m
}

// Init starts reading the subscription.
func (m Model) Init() tea.Cmd {
	return waitForEnvelope(m.sub)
}

func waitForEnvelope(sub <-chan types.Envelope) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		env, ok := <-sub
		if !ok {
			return SubscriptionClosedMsg{}
		}
		return EnvelopeMsg{Envelope: env}
	}
}

// refresh copies slot state out of the runtime, keeping scroll positions.
func (m *Model) refresh() {
	snapshots := m.rt.Slots()
	panes := make([]pane, len(snapshots))
	for i, snap := range snapshots {
		panes[i] = pane{
			slot:   snap,
			events: m.rt.Recent(snap.Slot, paneFetch),
		}
		if i < len(m.panes) && m.panes[i].slot.Path == snap.Path {
			panes[i].scroll = m.panes[i].scroll
		}
	}
	m.panes = panes
	if m.focused >= len(m.panes) {
		m.focused = max(0, len(m.panes)-1)
	}
	if sample, ok := m.rt.LatestUsage(); ok {
		m.usage = &sample
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EnvelopeMsg:
		m.refresh()
		return m, waitForEnvelope(m.sub)

	case SubscriptionClosedMsg:
		m.closed = true
		return m, nil
	}

	return m, nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyCtrlC:
		return m, tea.Quit

	case KeyTab:
		if len(m.panes) > 0 {
			m.focused = (m.focused + 1) % len(m.panes)
		}

	case KeyShiftTab:
		if len(m.panes) > 0 {
			m.focused = (m.focused - 1 + len(m.panes)) % len(m.panes)
		}

	case KeyUp, KeyK:
		m.scrollFocused(1)

	case KeyDown, KeyJ:
		m.scrollFocused(-1)

	case KeyLive, KeyEnd:
		if m.focused < len(m.panes) {
			m.panes[m.focused].scroll = 0
		}

	case KeyHistory:
		m.hideHistory = !m.hideHistory
	}
	return m, nil
}

func (m *Model) scrollFocused(delta int) {
	if m.focused >= len(m.panes) {
		return
	}
	p := &m.panes[m.focused]
	width, _ := m.size()
	visible := m.paneHeight() - 1
	maxScroll := max(0, len(m.displayLines(*p, width))-visible)
	p.scroll = min(max(p.scroll+delta, 0), maxScroll)
}

// =============================================================================
// VIEW
// =============================================================================

func (m Model) size() (int, int) {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return width, height
}

// paneHeight is the number of lines given to each pane, title included.
func (m Model) paneHeight() int {
	_, height := m.size()
	n := len(m.panes)
	if n == 0 {
		return minPaneLines
	}
	// header, footer and one divider between panes
	avail := height - 2 - (n - 1)
	return max(minPaneLines, avail/n)
}

// View renders the dashboard.
func (m Model) View() string {
	width, _ := m.size()

	sections := []string{m.renderHeader(width)}
	if len(m.panes) == 0 {
		sections = append(sections, DimStyle.Render("  No slots configured."))
	}
	paneHeight := m.paneHeight()
	for i := range m.panes {
		if i > 0 {
			sections = append(sections, DividerStyle.Render(strings.Repeat("─", width)))
		}
		sections = append(sections, m.renderPane(i, width, paneHeight))
	}
	sections = append(sections, m.renderFooter(width))
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader(width int) string {
	title := TitleStyle.Render("CLAUDEWATCH")
	if m.usage == nil {
		return title
	}
	u := m.usage
	right := DimStyle.Render(fmt.Sprintf("%s tok · %.0f tok/min · $%.2f/h",
		formatTokens(u.TotalTokens), u.TokensPerMinute, u.CostPerHour))
	gap := width - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		return title
	}
	return title + strings.Repeat(" ", gap) + right
}

func (m Model) renderPane(i, width, height int) string {
	p := m.panes[i]

	titleStyle := PaneTitleStyle
	if i == m.focused {
		titleStyle = PaneTitleActiveStyle
	}
	header := titleStyle.Render(fmt.Sprintf("SLOT %d", p.slot.Slot))

	lines := make([]string, 0, height)
	if !p.slot.HasFile {
		header += " " + NoFileStyle.Render("no session")
		lines = append(lines, ansi.Truncate(header, width, "…"))
		for len(lines) < height {
			lines = append(lines, "")
		}
		return strings.Join(lines, "\n")
	}

	if p.scroll > 0 {
		header += ScrollBadgeStyle.Render(" SCROLL")
	} else {
		header += LiveBadgeStyle.Render(" LIVE")
	}
	header += " " + DimStyle.Render(sessionName(p.slot.Path))
	if label := m.label(p.slot.Path); label != "" {
		header += " " + LabelStyle.Render("["+label+"]")
	}
	if total := p.slot.Usage.Total(); total > 0 {
		header += DimStyle.Render(fmt.Sprintf("  %s tok", formatTokens(total)))
	}
	lines = append(lines, ansi.Truncate(header, width, "…"))

	body := m.displayLines(p, width)
	visible := height - 1
	end := len(body) - min(p.scroll, len(body))
	start := max(0, end-visible)
	lines = append(lines, body[start:end]...)
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter(width int) string {
	var parts []string
	parts = append(parts, FooterKeyStyle.Render("Tab")+FooterDescStyle.Render(" Focus"))
	parts = append(parts, FooterKeyStyle.Render("↑↓")+FooterDescStyle.Render(" Scroll"))
	parts = append(parts, FooterKeyStyle.Render("G")+FooterDescStyle.Render(" Live"))
	if m.hideHistory {
		parts = append(parts, FooterKeyStyle.Render("h")+FooterDescStyle.Render(" Show history"))
	} else {
		parts = append(parts, FooterKeyStyle.Render("h")+FooterDescStyle.Render(" Hide history"))
	}
	parts = append(parts, FooterKeyStyle.Render("q")+FooterDescStyle.Render(" Quit"))
	footer := strings.Join(parts, "  ")
	if m.closed {
		footer += "  " + DimStyle.Render("(stream closed)")
	}
	return ansi.Truncate(footer, width, "…")
}

// displayLines renders every event of p that is currently shown.
func (m Model) displayLines(p pane, width int) []string {
	var lines []string
	for _, ev := range p.events {
		if ev.IsHistory && m.hideHistory {
			continue
		}
		lines = append(lines, renderEvent(ev, width)...)
	}
	return lines
}

func (m Model) label(path string) string {
	if m.labels == nil {
		return ""
	}
	return m.labels.Label(path)
}

// =============================================================================
// EVENT RENDERING
// =============================================================================

// renderEvent turns one event into display lines no wider than width.
// Assistant text wraps over a few lines; every other kind gets one line.
func renderEvent(ev types.SlotEvent, width int) []string {
	style, marker := kindStyle(ev.Kind)
	if ev.IsHistory {
		style = HistoryStyle
	}
	content := strings.Join(strings.Fields(ev.Content), " ")
	if ev.Kind == types.KindSessionStart {
		content = "── " + content + " ──"
	}
	if ev.Kind.Mergeable() && !ev.IsComplete {
		content += " ▌"
	}

	textWidth := max(1, width-ansi.StringWidth(marker))
	if ev.Kind != types.KindText {
		return []string{style.Render(marker + ansi.Truncate(content, textWidth, "…"))}
	}

	wrapped := strings.Split(ansi.Wordwrap(content, textWidth, ""), "\n")
	if len(wrapped) > maxTextLines {
		wrapped = wrapped[:maxTextLines]
		last := wrapped[maxTextLines-1]
		wrapped[maxTextLines-1] = ansi.Truncate(last, textWidth-1, "") + "…"
	}
	lines := make([]string, len(wrapped))
	pad := strings.Repeat(" ", ansi.StringWidth(marker))
	for i, line := range wrapped {
		prefix := pad
		if i == 0 {
			prefix = marker
		}
		lines[i] = style.Render(prefix + ansi.Truncate(line, textWidth, "…"))
	}
	return lines
}

func kindStyle(kind types.EventKind) (lipgloss.Style, string) {
	switch kind {
	case types.KindUser:
		return UserStyle, "> "
	case types.KindThinking:
		return ThinkingStyle, "~ "
	case types.KindToolUse:
		return ToolStyle, "⚙ "
	case types.KindComplete:
		return CompleteStyle, "✓ "
	case types.KindSessionStart:
		return SessionStartStyle, ""
	default:
		return TextStyle, "  "
	}
}

// sessionName shortens a session log path to its file stem.
func sessionName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
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
