package types

import "testing"

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantType string
		wantKind RecordKind
	}{
		{name: "empty", line: "", wantOK: false},
		{name: "whitespace", line: "  \t ", wantOK: false},
		{name: "invalid json", line: `{"type":"user"`, wantOK: false},
		{name: "trailing garbage", line: `{"type":"user"} x`, wantOK: false},
		{name: "array", line: `[1,2]`, wantOK: false},
		{name: "string", line: `"user"`, wantOK: false},
		{name: "null", line: `null`, wantOK: false},
		{name: "user", line: `{"type":"user","message":{}}`, wantOK: true, wantType: "user", wantKind: RecordUser},
		{name: "assistant padded", line: "  {\"type\":\"assistant\"}\r", wantOK: true, wantType: "assistant", wantKind: RecordAssistant},
		{name: "snapshot", line: `{"type":"file-history-snapshot"}`, wantOK: true, wantType: "file-history-snapshot", wantKind: RecordFileHistorySnapshot},
		{name: "queue", line: `{"type":"queue-operation","operation":"dequeue"}`, wantOK: true, wantType: "queue-operation", wantKind: RecordQueueOperation},
		{name: "unrecognized type", line: `{"type":"progress"}`, wantOK: true, wantType: "progress", wantKind: RecordUnknown},
		{name: "missing type", line: `{"foo":1}`, wantOK: true, wantType: "", wantKind: RecordUnknown},
		{name: "numeric type", line: `{"type":7}`, wantOK: true, wantType: "", wantKind: RecordUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ParseRecord(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseRecord(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				if rec != nil {
					t.Fatalf("expected nil record, got %+v", rec)
				}
				return
			}
			if rec.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", rec.Type, tt.wantType)
			}
			if rec.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", rec.Kind, tt.wantKind)
			}
		})
	}
}

func TestRecordKindString(t *testing.T) {
	if got := RecordQueueOperation.String(); got != "queue-operation" {
		t.Errorf("String() = %q", got)
	}
	if got := RecordKind(99).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}
