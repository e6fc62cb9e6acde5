package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultRecentLimit is the number of events recent_events returns when the
// caller does not say.
const DefaultRecentLimit = 20

// MaxRecentLimit caps recent_events regardless of the requested limit.
const MaxRecentLimit = 500

// CreateListSlotsTool creates the list_slots tool definition
func CreateListSlotsTool(instruction string) mcp.Tool {
	return mcp.NewTool(ToolListSlots,
		mcp.WithDescription(instruction),
	)
}

// CreateRecentEventsTool creates the recent_events tool definition
func CreateRecentEventsTool(instruction string) mcp.Tool {
	return mcp.NewTool(ToolRecentEvents,
		mcp.WithDescription(instruction),
		mcp.WithNumber("slot",
			mcp.Required(),
			mcp.Description("Slot number (0 = most recently active session)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of events to return (default: 20, max: 500)"),
		),
	)
}

// CreateUsageSummaryTool creates the usage_summary tool definition
func CreateUsageSummaryTool(instruction string) mcp.Tool {
	return mcp.NewTool(ToolUsageSummary,
		mcp.WithDescription(instruction),
	)
}

// CreateLabelSessionTool creates the label_session tool definition
func CreateLabelSessionTool(instruction string) mcp.Tool {
	return mcp.NewTool(ToolLabelSession,
		mcp.WithDescription(instruction),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path of the session log, as shown by list_slots"),
		),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Label text; empty removes the label"),
		),
	)
}
