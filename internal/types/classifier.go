package types

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// RECORD CLASSIFIER
// =============================================================================

// RecordKind is the classified kind of a JSONL record.
type RecordKind int

const (
	RecordUnknown RecordKind = iota
	RecordUser
	RecordAssistant
	RecordSystem
	RecordSummary
	RecordFileHistorySnapshot
	RecordQueueOperation
)

// String returns the discriminator value for the kind.
func (k RecordKind) String() string {
	switch k {
	case RecordUser:
		return RecordTypeUser
	case RecordAssistant:
		return RecordTypeAssistant
	case RecordSystem:
		return RecordTypeSystem
	case RecordSummary:
		return RecordTypeSummary
	case RecordFileHistorySnapshot:
		return RecordTypeFileHistorySnapshot
	case RecordQueueOperation:
		return RecordTypeQueueOperation
	default:
		return "unknown"
	}
}

func kindOf(recordType string) RecordKind {
	switch recordType {
	case RecordTypeUser:
		return RecordUser
	case RecordTypeAssistant:
		return RecordAssistant
	case RecordTypeSystem:
		return RecordSystem
	case RecordTypeSummary:
		return RecordSummary
	case RecordTypeFileHistorySnapshot:
		return RecordFileHistorySnapshot
	case RecordTypeQueueOperation:
		return RecordQueueOperation
	default:
		return RecordUnknown
	}
}

// Record is one JSON object read from one line of a session file.
// Only the discriminator is decoded up front; Raw is kept for the typed
// second pass done by the extractor.
type Record struct {
	Type string // declared "type" value, empty when absent or not a string
	Kind RecordKind
	Raw  json.RawMessage
}

// ParseRecord parses a single JSONL line. It reports false for blank lines,
// invalid JSON and JSON values that are not objects. It never panics.
func ParseRecord(line string) (*Record, bool) {
	raw := bytes.TrimSpace([]byte(line))
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	// First pass: discriminator only. Type is decoded as any so a record with
	// a non-string type still counts as a record of unknown kind.
	var discriminator struct {
		Type any `json:"type"`
	}
	if err := json.Unmarshal(raw, &discriminator); err != nil {
		return nil, false
	}

	recordType, _ := discriminator.Type.(string)
	return &Record{
		Type: recordType,
		Kind: kindOf(recordType),
		Raw:  json.RawMessage(raw),
	}, true
}
