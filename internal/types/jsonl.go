// Package types provides JSONL record shapes for Claude Code session files
// and the display events derived from them.
package types

import "encoding/json"

// =============================================================================
// RECORD TYPE CONSTANTS
// =============================================================================

// JSONL record type discriminators
const (
	RecordTypeUser                = "user"
	RecordTypeAssistant           = "assistant"
	RecordTypeSystem              = "system"
	RecordTypeSummary             = "summary"
	RecordTypeFileHistorySnapshot = "file-history-snapshot"
	RecordTypeQueueOperation      = "queue-operation"
)

// Queue operations
const (
	QueueOperationEnqueue = "enqueue"
	QueueOperationDequeue = "dequeue"
)

// Content block types
const (
	BlockTypeText       = "text"
	BlockTypeThinking   = "thinking"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
	BlockTypeImage      = "image"
)

// =============================================================================
// BASE RECORD
// =============================================================================

// RecordHeader contains common fields present across most JSONL records.
type RecordHeader struct {
	Type        string `json:"type"`
	UUID        string `json:"uuid,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	ParentUUID  string `json:"parentUuid,omitempty"`
	Cwd         string `json:"cwd,omitempty"`
	IsSidechain bool   `json:"isSidechain,omitempty"`
}

// =============================================================================
// USER RECORD
// =============================================================================

// UserRecord is a user turn: typed input or tool results fed back to the model.
type UserRecord struct {
	RecordHeader
	Message UserMessage `json:"message"`
}

// UserMessage holds the user body, either a plain string or a block array.
type UserMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// =============================================================================
// ASSISTANT RECORD
// =============================================================================

// AssistantRecord is one snapshot of an assistant message. Streamed messages
// are written as several records sharing the same Message.ID.
type AssistantRecord struct {
	RecordHeader
	RequestID string           `json:"requestId,omitempty"`
	Message   AssistantMessage `json:"message"`
}

// AssistantMessage is the API message carried by an assistant record.
type AssistantMessage struct {
	ID         string         `json:"id"`
	Model      string         `json:"model,omitempty"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	StopReason *string        `json:"stop_reason"`
	Usage      *TokenUsage    `json:"usage,omitempty"`
}

// ContentBlock is one block of assistant content. Input is kept raw so the
// tool input's key order survives for summarizing.
type ContentBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	Thinking string          `json:"thinking,omitempty"`
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// TokenUsage mirrors the usage counters reported by the API.
type TokenUsage struct {
	InputTokens              int64   `json:"input_tokens"`
	OutputTokens             int64   `json:"output_tokens"`
	CacheCreationInputTokens int64   `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int64   `json:"cache_read_input_tokens,omitempty"`
	ServiceTier              string  `json:"service_tier,omitempty"`
	CostUSD                  float64 `json:"costUSD,omitempty"`
}

// =============================================================================
// QUEUE OPERATION RECORD
// =============================================================================

// QueueOperationRecord marks prompts entering or leaving the input queue.
// A dequeue starts a new turn.
type QueueOperationRecord struct {
	RecordHeader
	Operation string `json:"operation"`
	Content   string `json:"content,omitempty"`
}
