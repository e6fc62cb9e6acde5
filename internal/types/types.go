package types

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DISPLAY EVENTS
// =============================================================================

// EventKind is the display kind of an Event.
type EventKind string

const (
	KindSessionStart EventKind = "session-start"
	KindUser         EventKind = "user"
	KindThinking     EventKind = "thinking"
	KindText         EventKind = "text"
	KindToolUse      EventKind = "tool-use"
	KindComplete     EventKind = "complete"
)

// Mergeable reports whether events of this kind can arrive as streamed
// fragments that must be reconciled by message identity.
func (k EventKind) Mergeable() bool {
	return k == KindText || k == KindThinking || k == KindToolUse
}

// Usage holds token and cost counters attached to assistant events.
type Usage struct {
	InputTokens         int64   `json:"inputTokens"`
	OutputTokens        int64   `json:"outputTokens"`
	CacheCreationTokens int64   `json:"cacheCreationTokens,omitempty"`
	CacheReadTokens     int64   `json:"cacheReadTokens,omitempty"`
	CostUSD             float64 `json:"costUsd,omitempty"`
}

// Total returns all tokens counted by the usage.
func (u *Usage) Total() int64 {
	if u == nil {
		return 0
	}
	return u.InputTokens + u.OutputTokens + u.CacheCreationTokens + u.CacheReadTokens
}

// Event is one display-ready unit extracted from a record.
type Event struct {
	Kind       EventKind `json:"kind"`
	Content    string    `json:"content"`
	MessageID  string    `json:"messageId,omitempty"`
	IsComplete bool      `json:"isComplete"`
	Usage      *Usage    `json:"usage,omitempty"`
	ToolName   string    `json:"toolName,omitempty"`
}

// SlotEvent is an Event as emitted by a session slot.
type SlotEvent struct {
	Event
	Slot      int  `json:"slot"`
	IsHistory bool `json:"isHistory"`
	IsUpdate  bool `json:"isUpdate"`
}

// =============================================================================
// ENVELOPES
// =============================================================================

// EnvelopeType identifies the notification carried by an Envelope.
type EnvelopeType string

const (
	EnvelopeFile   EnvelopeType = "file"   // slot switched to Path
	EnvelopeNoFile EnvelopeType = "nofile" // slot has no candidate file
	EnvelopeEvent  EnvelopeType = "event"
	EnvelopeUsage  EnvelopeType = "usage"
)

// UsageSlot is the slot number used for envelopes not tied to a session slot.
const UsageSlot = -1

// UsageSample is one reading of the external usage-accounting command.
type UsageSample struct {
	TotalTokens     int64     `json:"totalTokens"`
	TotalCost       float64   `json:"totalCost"`
	TokensPerMinute float64   `json:"tokensPerMinute"`
	CostPerHour     float64   `json:"costPerHour"`
	At              time.Time `json:"at"`
}

// Envelope wraps every notification delivered to consumers.
type Envelope struct {
	ID    string       `json:"id"`
	Type  EnvelopeType `json:"type"`
	Slot  int          `json:"slot"`
	Path  string       `json:"path,omitempty"`
	Event *SlotEvent   `json:"event,omitempty"`
	Usage *UsageSample `json:"usage,omitempty"`
	Time  time.Time    `json:"time"`
}

// NewFileEnvelope announces that a slot now follows path.
func NewFileEnvelope(slot int, path string) Envelope {
	return newEnvelope(EnvelopeFile, slot, func(e *Envelope) { e.Path = path })
}

// NewNoFileEnvelope announces that a slot has no file.
func NewNoFileEnvelope(slot int) Envelope {
	return newEnvelope(EnvelopeNoFile, slot, nil)
}

// NewEventEnvelope wraps an emitted slot event.
func NewEventEnvelope(ev SlotEvent) Envelope {
	return newEnvelope(EnvelopeEvent, ev.Slot, func(e *Envelope) { e.Event = &ev })
}

// NewUsageEnvelope wraps a usage sample.
func NewUsageEnvelope(sample UsageSample) Envelope {
	return newEnvelope(EnvelopeUsage, UsageSlot, func(e *Envelope) { e.Usage = &sample })
}

func newEnvelope(t EnvelopeType, slot int, fill func(*Envelope)) Envelope {
	env := Envelope{
		ID:   uuid.NewString(),
		Type: t,
		Slot: slot,
		Time: time.Now(),
	}
	if fill != nil {
		fill(&env)
	}
	return env
}
