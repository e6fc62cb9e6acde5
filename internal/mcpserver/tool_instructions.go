package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"claudewatch/internal/defaults"
)

// ToolInstructionsFile holds the tool descriptions in the config dir.
const ToolInstructionsFile = "mcp_tool_instructions.json"

// ToolInstructions is the description advertised for each tool
type ToolInstructions struct {
	ListSlots    string `json:"listSlots"`
	RecentEvents string `json:"recentEvents"`
	UsageSummary string `json:"usageSummary"`
	LabelSession string `json:"labelSession"`
}

// ToolInstructionsManager keeps the tool descriptions sent to clients.
type ToolInstructionsManager struct {
	dir   string
	mu    sync.RWMutex
	state ToolInstructions
}

// NewToolInstructionsManager loads descriptions from dir. Blank entries
// are filled from the embedded defaults and written back. An empty dir
// keeps the defaults in memory.
func NewToolInstructionsManager(dir string) *ToolInstructionsManager {
	m := &ToolInstructionsManager{dir: dir, state: *DefaultToolInstructions()}
	if dir == "" {
		return m
	}

	var stored ToolInstructions
	found, err := readToolFile(dir, ToolInstructionsFile, &stored)
	if err != nil {
		log.Printf("[mcp] %v, using defaults", err)
		return m
	}
	if found {
		changed := stored.fillFrom(m.state)
		m.state = stored
		if !changed {
			return m
		}
	}
	if err := writeToolFile(dir, ToolInstructionsFile, m.state); err != nil {
		log.Printf("[mcp] write %s: %v", ToolInstructionsFile, err)
	}
	return m
}

// DefaultToolInstructions decodes the embedded default descriptions.
func DefaultToolInstructions() *ToolInstructions {
	var ti ToolInstructions
	if err := json.Unmarshal(defaults.ToolInstructionsJSON(), &ti); err != nil {
		// the embedded file is part of the build
		panic(fmt.Sprintf("mcpserver: bad embedded tool instructions: %v", err))
	}
	return &ti
}

// fillFrom copies fallback into every blank field and reports whether any
// field changed.
func (ti *ToolInstructions) fillFrom(fallback ToolInstructions) bool {
	changed := false
	for _, f := range []struct {
		value    *string
		fallback string
	}{
		{&ti.ListSlots, fallback.ListSlots},
		{&ti.RecentEvents, fallback.RecentEvents},
		{&ti.UsageSummary, fallback.UsageSummary},
		{&ti.LabelSession, fallback.LabelSession},
	} {
		if *f.value == "" {
			*f.value = f.fallback
			changed = true
		}
	}
	return changed
}

// GetInstructions returns a copy of the current descriptions.
func (m *ToolInstructionsManager) GetInstructions() ToolInstructions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SaveInstructions replaces the descriptions and persists them. They take
// effect the next time the server starts.
func (m *ToolInstructionsManager) SaveInstructions(ti ToolInstructions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = ti
	if m.dir == "" {
		return nil
	}
	return writeToolFile(m.dir, ToolInstructionsFile, ti)
}
