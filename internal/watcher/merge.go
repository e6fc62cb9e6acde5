package watcher

import (
	"unicode/utf8"

	"claudewatch/internal/types"
)

// =============================================================================
// MERGE ENGINE
// Assistant messages are streamed to the session file as a series of growing
// snapshots sharing one message id. The merger folds them into one event per
// (message, kind, tool) and decides when an in-place update is emitted.
// =============================================================================

// MergeKey identifies one logical streamed event.
type MergeKey struct {
	MessageID string
	Kind      types.EventKind
	ToolName  string
}

// Merger holds the merge state for one slot. It is not safe for concurrent
// use; the owning SlotWatcher serializes access.
type Merger struct {
	slot   int
	states map[MergeKey]*types.Event
}

// NewMerger creates an empty merger for a slot.
func NewMerger(slot int) *Merger {
	return &Merger{
		slot:   slot,
		states: make(map[MergeKey]*types.Event),
	}
}

// Apply folds ev into the merge state. It returns the event to emit and
// whether anything should be emitted at all.
//
// Events without a message id, and kinds that never stream, pass straight
// through. The first fragment for a key is buffered silently. Later
// fragments emit an update only when text grew or the message completed,
// and never during history replay.
func (m *Merger) Apply(ev types.Event, history bool) (types.SlotEvent, bool) {
	out := types.SlotEvent{Slot: m.slot, IsHistory: history}

	if ev.MessageID == "" || !ev.Kind.Mergeable() {
		out.Event = ev
		return out, true
	}

	key := MergeKey{MessageID: ev.MessageID, Kind: ev.Kind, ToolName: ev.ToolName}
	state, ok := m.states[key]
	if !ok {
		stored := ev
		m.states[key] = &stored
		return out, false
	}

	switch {
	case ev.Kind == types.KindText && utf8.RuneCountInString(ev.Content) > utf8.RuneCountInString(state.Content):
		state.Content = ev.Content
		// completion is sticky
		state.IsComplete = state.IsComplete || ev.IsComplete
		if ev.Usage != nil {
			state.Usage = ev.Usage
		}
	case ev.IsComplete && !state.IsComplete:
		state.IsComplete = true
		if ev.Usage != nil {
			state.Usage = ev.Usage
		}
	default:
		return out, false
	}

	if history {
		return out, false
	}
	out.Event = *state
	out.IsUpdate = true
	return out, true
}

// Reset drops all merge state. Called when the slot switches files.
func (m *Merger) Reset() {
	m.states = make(map[MergeKey]*types.Event)
}

// Len returns the number of tracked keys.
func (m *Merger) Len() int {
	return len(m.states)
}

// State returns a copy of the merged event for key.
func (m *Merger) State(key MergeKey) (types.Event, bool) {
	state, ok := m.states[key]
	if !ok {
		return types.Event{}, false
	}
	return *state, true
}
