// Package runtime is the single source of truth for what the slots have
// emitted. It buffers recent events per slot and fans envelopes out to
// subscribers (dashboard, journal, websocket clients).
package runtime

import (
	"log"
	"sort"
	"sync"
	"time"

	"claudewatch/internal/types"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// MaxBufferSize is the maximum number of events kept in memory per slot.
// Older events are dropped first.
const MaxBufferSize = 500

// DefaultSubscriberBuffer is the channel size used when Subscribe gets 0.
const DefaultSubscriberBuffer = 256

// =============================================================================
// RUNTIME - Single State Container
// =============================================================================

// Runtime holds per-slot display state and the subscriber list.
type Runtime struct {
	slots       map[int]*SlotState
	usage       *types.UsageSample
	subscribers map[int]*subscriber
	nextSubID   int
	mu          sync.RWMutex
}

// SlotState holds runtime state for a single slot.
type SlotState struct {
	Slot      int
	Path      string
	HasFile   bool
	Events    []types.SlotEvent
	Emitted   int         // events received since the slot opened its file
	Usage     types.Usage // summed over completed messages of the current file
	UpdatedAt time.Time

	counted map[string]bool // message ids already added to Usage
}

// SlotSnapshot is a copy of a slot's state without its event buffer.
type SlotSnapshot struct {
	Slot      int         `json:"slot"`
	Path      string      `json:"path,omitempty"`
	HasFile   bool        `json:"hasFile"`
	Buffered  int         `json:"buffered"`
	Emitted   int         `json:"emitted"`
	Usage     types.Usage `json:"usage"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type subscriber struct {
	ch      chan types.Envelope
	dropped int
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a runtime with empty state for slots 0..slots-1.
func New(slots int) *Runtime {
	rt := &Runtime{
		slots:       make(map[int]*SlotState),
		subscribers: make(map[int]*subscriber),
	}
	for i := 0; i < slots; i++ {
		rt.slots[i] = newSlotState(i)
	}
	return rt
}

func newSlotState(slot int) *SlotState {
	return &SlotState{Slot: slot, counted: make(map[string]bool)}
}

// =============================================================================
// EVENT INTAKE
// =============================================================================

// Emit applies an envelope to the runtime state and forwards it to every
// subscriber. It is the watcher's EmitFunc and never blocks: a subscriber
// whose channel is full misses the envelope.
func (rt *Runtime) Emit(env types.Envelope) {
	rt.mu.Lock()
	rt.apply(env)
	for id, sub := range rt.subscribers {
		select {
		case sub.ch <- env:
		default:
			sub.dropped++
			if sub.dropped == 1 || sub.dropped%100 == 0 {
				log.Printf("[runtime] subscriber %d is slow, dropped %d envelopes", id, sub.dropped)
			}
		}
	}
	rt.mu.Unlock()
}

// apply updates slot state. Caller holds mu.
func (rt *Runtime) apply(env types.Envelope) {
	if env.Type == types.EnvelopeUsage {
		if env.Usage != nil {
			sample := *env.Usage
			rt.usage = &sample
		}
		return
	}

	state, ok := rt.slots[env.Slot]
	if !ok {
		state = newSlotState(env.Slot)
		rt.slots[env.Slot] = state
	}
	state.UpdatedAt = env.Time

	switch env.Type {
	case types.EnvelopeFile:
		*state = *newSlotState(env.Slot)
		state.Path = env.Path
		state.HasFile = true
		state.UpdatedAt = env.Time
	case types.EnvelopeNoFile:
		*state = *newSlotState(env.Slot)
		state.UpdatedAt = env.Time
	case types.EnvelopeEvent:
		if env.Event != nil {
			state.addEvent(*env.Event)
		}
	}
}

// addEvent appends ev, or replaces the buffered event it updates.
func (s *SlotState) addEvent(ev types.SlotEvent) {
	s.Emitted++

	replaced := false
	if ev.IsUpdate {
		for i := len(s.Events) - 1; i >= 0; i-- {
			if sameMessage(s.Events[i].Event, ev.Event) {
				s.Events[i] = ev
				replaced = true
				break
			}
		}
	}
	if !replaced {
		s.Events = append(s.Events, ev)
		if len(s.Events) > MaxBufferSize {
			excess := len(s.Events) - MaxBufferSize
			s.Events = append([]types.SlotEvent(nil), s.Events[excess:]...)
		}
	}

	if ev.IsComplete && ev.Usage != nil && ev.MessageID != "" && !s.counted[ev.MessageID] {
		s.counted[ev.MessageID] = true
		s.Usage.InputTokens += ev.Usage.InputTokens
		s.Usage.OutputTokens += ev.Usage.OutputTokens
		s.Usage.CacheCreationTokens += ev.Usage.CacheCreationTokens
		s.Usage.CacheReadTokens += ev.Usage.CacheReadTokens
		s.Usage.CostUSD += ev.Usage.CostUSD
	}
}

func sameMessage(a, b types.Event) bool {
	return a.MessageID != "" && a.MessageID == b.MessageID && a.Kind == b.Kind && a.ToolName == b.ToolName
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers a consumer. The returned function unsubscribes and
// closes the channel.
func (rt *Runtime) Subscribe(buffer int) (<-chan types.Envelope, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	rt.mu.Lock()
	id := rt.nextSubID
	rt.nextSubID++
	sub := &subscriber{ch: make(chan types.Envelope, buffer)}
	rt.subscribers[id] = sub
	rt.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			rt.mu.Lock()
			delete(rt.subscribers, id)
			rt.mu.Unlock()
			close(sub.ch)
		})
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Slots returns a snapshot of every slot, in slot order.
func (rt *Runtime) Slots() []SlotSnapshot {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	snapshots := make([]SlotSnapshot, 0, len(rt.slots))
	for _, s := range rt.slots {
		snapshots = append(snapshots, SlotSnapshot{
			Slot:      s.Slot,
			Path:      s.Path,
			HasFile:   s.HasFile,
			Buffered:  len(s.Events),
			Emitted:   s.Emitted,
			Usage:     s.Usage,
			UpdatedAt: s.UpdatedAt,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Slot < snapshots[j].Slot })
	return snapshots
}

// Recent returns up to n of the newest buffered events for slot, oldest
// first. n <= 0 returns the whole buffer.
func (rt *Runtime) Recent(slot, n int) []types.SlotEvent {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	s, ok := rt.slots[slot]
	if !ok {
		return nil
	}
	events := s.Events
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	out := make([]types.SlotEvent, len(events))
	copy(out, events)
	return out
}

// LatestUsage returns the most recent usage sample, if any.
func (rt *Runtime) LatestUsage() (types.UsageSample, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if rt.usage == nil {
		return types.UsageSample{}, false
	}
	return *rt.usage, true
}
