// Package mcpserver exposes watched session state to MCP clients over SSE.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"claudewatch/internal/journal"
	"claudewatch/internal/runtime"
	"claudewatch/internal/settings"
	"claudewatch/internal/watcher"
)

const serverVersion = "0.1.0"

// MCPService provides an MCP server for querying slot activity
type MCPService struct {
	server           *server.MCPServer
	runtime          *runtime.Runtime
	journal          *journal.Store
	labels           *settings.LabelStore
	status           func() []watcher.SlotStatus
	toolInstructions *ToolInstructionsManager
	toolAvailability *ToolAvailabilityManager
	port             int
	mu               sync.RWMutex
	running          bool
}

// NewMCPService creates a new MCP service on the specified port.
// configPath is the base config path (e.g., ~/.claudewatch); empty keeps
// tool settings in memory.
func NewMCPService(port int, configPath string, rt *runtime.Runtime) *MCPService {
	return &MCPService{
		port:             port,
		runtime:          rt,
		toolInstructions: NewToolInstructionsManager(configPath),
		toolAvailability: NewToolAvailabilityManager(configPath),
	}
}

// SetJournal makes recent_events read from the journal instead of the
// in-memory buffers.
func (s *MCPService) SetJournal(store *journal.Store) {
	s.journal = store
}

// SetLabels sets the label store used by list_slots and label_session
func (s *MCPService) SetLabels(labels *settings.LabelStore) {
	s.labels = labels
}

// SetStatusFunc sets the source of per-slot watcher state shown by
// list_slots. Followers have none.
func (s *MCPService) SetStatusFunc(status func() []watcher.SlotStatus) {
	s.status = status
}

// GetToolAvailability returns the tool availability manager
func (s *MCPService) GetToolAvailability() *ToolAvailabilityManager {
	return s.toolAvailability
}

// IsRunning returns whether the MCP server is currently running
func (s *MCPService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// buildServer creates the MCP server and registers every tool.
func (s *MCPService) buildServer() *server.MCPServer {
	instructions := s.toolInstructions.GetInstructions()

	mcpServer := server.NewMCPServer(
		"claudewatch",
		serverVersion,
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(CreateListSlotsTool(instructions.ListSlots), s.handleListSlots)
	mcpServer.AddTool(CreateRecentEventsTool(instructions.RecentEvents), s.handleRecentEvents)
	mcpServer.AddTool(CreateUsageSummaryTool(instructions.UsageSummary), s.handleUsageSummary)
	mcpServer.AddTool(CreateLabelSessionTool(instructions.LabelSession), s.handleLabelSession)
	return mcpServer
}

// Run serves the SSE endpoint until ctx is done. A port that cannot be
// bound is returned as an error.
func (s *MCPService) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.server = s.buildServer()

	sseServer := server.NewSSEServer(s.server,
		server.WithBaseURL(fmt.Sprintf("http://localhost:%d", s.port)),
	)
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("mcp listen on %s: %w", addr, err)
	}
	httpServer := &http.Server{Handler: sseServer}
	s.running = true
	s.mu.Unlock()

	log.Printf("[mcp] SSE server listening on %s", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		log.Println("[mcp] shutting down SSE server")
		// SSE streams never go idle, so Close rather than Shutdown.
		httpServer.Close()
		err = nil
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return err
}
