package mcpserver

import (
	"log"
	"sync"
)

// ToolAvailabilityFile holds the per-tool switches in the config dir.
const ToolAvailabilityFile = "mcp_tool_availability.json"

// Tool names as exposed to MCP clients.
const (
	ToolListSlots    = "list_slots"
	ToolRecentEvents = "recent_events"
	ToolUsageSummary = "usage_summary"
	ToolLabelSession = "label_session"
)

// ToolAvailability says which MCP tools answer calls
type ToolAvailability struct {
	ListSlots    bool `json:"listSlots"`
	RecentEvents bool `json:"recentEvents"`
	UsageSummary bool `json:"usageSummary"`
	LabelSession bool `json:"labelSession"` // writes to the label store, off by default
}

// ToolAvailabilityManager keeps the tool switches, persisted to
// ToolAvailabilityFile when a config dir is set.
type ToolAvailabilityManager struct {
	dir   string
	mu    sync.RWMutex
	state ToolAvailability
}

// NewToolAvailabilityManager loads the switches from dir, writing the
// defaults there on first use. An empty dir keeps them in memory.
func NewToolAvailabilityManager(dir string) *ToolAvailabilityManager {
	m := &ToolAvailabilityManager{dir: dir, state: *DefaultToolAvailability()}
	if dir == "" {
		return m
	}
	found, err := readToolFile(dir, ToolAvailabilityFile, &m.state)
	switch {
	case err != nil:
		log.Printf("[mcp] %v, using defaults", err)
		m.state = *DefaultToolAvailability()
	case !found:
		if err := writeToolFile(dir, ToolAvailabilityFile, m.state); err != nil {
			log.Printf("[mcp] write %s: %v", ToolAvailabilityFile, err)
		}
	}
	return m
}

// DefaultToolAvailability enables every read-only tool.
func DefaultToolAvailability() *ToolAvailability {
	return &ToolAvailability{
		ListSlots:    true,
		RecentEvents: true,
		UsageSummary: true,
	}
}

// GetAvailability returns a copy of the current switches.
func (m *ToolAvailabilityManager) GetAvailability() ToolAvailability {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsEnabled reports whether the named tool may run. Unknown names are off.
func (m *ToolAvailabilityManager) IsEnabled(toolName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.byName()[toolName]
}

func (ta ToolAvailability) byName() map[string]bool {
	return map[string]bool{
		ToolListSlots:    ta.ListSlots,
		ToolRecentEvents: ta.RecentEvents,
		ToolUsageSummary: ta.UsageSummary,
		ToolLabelSession: ta.LabelSession,
	}
}

// SaveAvailability replaces the switches and persists them.
func (m *ToolAvailabilityManager) SaveAvailability(ta ToolAvailability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = ta
	if m.dir == "" {
		return nil
	}
	return writeToolFile(m.dir, ToolAvailabilityFile, ta)
}
