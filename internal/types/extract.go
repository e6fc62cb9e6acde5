package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Truncation limits, in characters.
const (
	userTextLimit       = 200
	userTotalLimit      = 300
	toolResultLimit     = 60
	thinkingPreview     = 80
	toolInputLimit      = 50
	toolInputValueLimit = 40
)

// Placeholders for content that has no text of its own.
const (
	ThinkingPlaceholder   = "[thinking]"
	ImagePlaceholder      = "[image]"
	ToolResultPlaceholder = "[tool result]"
)

// toolInputKeys are checked in order when summarizing tool input.
var toolInputKeys = []string{"command", "path", "file_path", "url", "query", "pattern", "description"}

// =============================================================================
// EVENT EXTRACTION
// =============================================================================

// ExtractEvents turns one record into zero or more display events.
// Malformed records and unexpected shapes yield no events.
func ExtractEvents(rec *Record) (events []Event) {
	if rec == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			events = nil
		}
	}()

	switch rec.Kind {
	case RecordQueueOperation:
		return extractQueueOperation(rec.Raw)
	case RecordUser:
		return extractUser(rec.Raw)
	case RecordAssistant:
		return extractAssistant(rec.Raw)
	default:
		// file-history-snapshot, system, summary and unknown kinds are not shown
		return nil
	}
}

func extractQueueOperation(raw json.RawMessage) []Event {
	var rec QueueOperationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	if rec.Operation != QueueOperationDequeue {
		return nil
	}
	return []Event{{Kind: KindSessionStart}}
}

func extractUser(raw json.RawMessage) []Event {
	var rec UserRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	return []Event{{
		Kind:       KindUser,
		Content:    userContent(rec.Message.Content),
		IsComplete: true,
	}}
}

func extractAssistant(raw json.RawMessage) []Event {
	var rec AssistantRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	msg := rec.Message
	complete := msg.StopReason != nil
	usage := convertUsage(msg.Usage)

	var events []Event
	for _, block := range msg.Content {
		ev := Event{
			MessageID:  msg.ID,
			IsComplete: complete,
			Usage:      usage,
		}
		switch block.Type {
		case BlockTypeThinking:
			ev.Kind = KindThinking
			ev.Content = thinkingContent(block.Thinking)
		case BlockTypeText:
			ev.Kind = KindText
			ev.Content = block.Text
		case BlockTypeToolUse:
			ev.Kind = KindToolUse
			ev.ToolName = block.Name
			ev.Content = block.Name + "(" + SummarizeToolInput(block.Input) + ")"
		default:
			continue
		}
		events = append(events, ev)
	}

	if complete && len(events) == 0 {
		events = append(events, Event{
			Kind:       KindComplete,
			Content:    "[" + *msg.StopReason + "]",
			MessageID:  msg.ID,
			IsComplete: true,
			Usage:      usage,
		})
	}
	return events
}

// =============================================================================
// CONTENT HELPERS
// =============================================================================

// userContent renders a user message body. The body is either a string or an
// array of content blocks.
func userContent(rawContent any) string {
	switch c := rawContent.(type) {
	case string:
		return truncate(c, userTextLimit)
	case []any:
		var parts []string
		for _, item := range c {
			block, ok := item.(map[string]any)
			if !ok {
				continue
			}
			switch getString(block, "type") {
			case BlockTypeText:
				if text := getString(block, "text"); text != "" {
					parts = append(parts, truncate(text, userTextLimit))
				}
			case BlockTypeToolResult:
				parts = append(parts, toolResultSynopsis(block["content"]))
			case BlockTypeImage:
				parts = append(parts, ImagePlaceholder)
			}
		}
		return truncate(strings.Join(parts, " "), userTotalLimit)
	}
	return ""
}

// toolResultSynopsis shortens a tool_result body. Structured results prefer
// their first text item.
func toolResultSynopsis(rawContent any) string {
	switch c := rawContent.(type) {
	case string:
		if c != "" {
			return truncate(c, toolResultLimit)
		}
	case []any:
		for _, item := range c {
			itemMap, ok := item.(map[string]any)
			if !ok || getString(itemMap, "type") != BlockTypeText {
				continue
			}
			if text := getString(itemMap, "text"); text != "" {
				return truncate(text, toolResultLimit)
			}
		}
	}
	return ToolResultPlaceholder
}

func thinkingContent(thinking string) string {
	if strings.TrimSpace(thinking) == "" {
		return ThinkingPlaceholder
	}
	return truncate(thinking, thinkingPreview) + "…"
}

func convertUsage(u *TokenUsage) *Usage {
	if u == nil {
		return nil
	}
	return &Usage{
		InputTokens:         u.InputTokens,
		OutputTokens:        u.OutputTokens,
		CacheCreationTokens: u.CacheCreationInputTokens,
		CacheReadTokens:     u.CacheReadInputTokens,
		CostUSD:             u.CostUSD,
	}
}

// SummarizeToolInput renders a one-line summary of a tool_use input object.
// A well-known key wins; otherwise the first key in document order is shown
// as key=value.
func SummarizeToolInput(input json.RawMessage) string {
	if len(bytes.TrimSpace(input)) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input, &fields); err != nil || len(fields) == 0 {
		return ""
	}

	for _, key := range toolInputKeys {
		if value, ok := fields[key]; ok {
			return truncate(stringifyJSON(value), toolInputLimit)
		}
	}

	key, value, ok := firstField(input)
	if !ok {
		return ""
	}
	return key + "=" + truncate(stringifyJSON(value), toolInputValueLimit)
}

// firstField returns the first key of a JSON object in document order.
func firstField(input json.RawMessage) (string, json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(input))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", nil, false
	}
	if !dec.More() {
		return "", nil, false
	}
	tok, err := dec.Token()
	if err != nil {
		return "", nil, false
	}
	key, ok := tok.(string)
	if !ok {
		return "", nil, false
	}
	var value json.RawMessage
	if err := dec.Decode(&value); err != nil {
		return "", nil, false
	}
	return key, value, true
}

// stringifyJSON renders a JSON value for display: strings unquoted,
// everything else compact.
func stringifyJSON(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return string(value)
	}
	return buf.String()
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// getString safely extracts a string from a map.
func getString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
