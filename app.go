package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"claudewatch/internal/config"
	"claudewatch/internal/journal"
	"claudewatch/internal/mcpserver"
	"claudewatch/internal/runtime"
	"claudewatch/internal/settings"
	"claudewatch/internal/watcher"
)

// App holds the application state
type App struct {
	cfg       config.AppConfig
	settings  *settings.Manager
	labels    *settings.LabelStore
	rt        *runtime.Runtime
	watcher   *watcher.Watcher
	journal   *journal.Store
	mcpServer *mcpserver.MCPService
	logFile   *os.File
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// =============================================================================
// STARTUP - Single Initialization Chain
// =============================================================================

// Run initializes every component from the resolved config and serves
// until ctx is done or the dashboard quits. Command loads persisted state
// first.
func (a *App) Run(ctx context.Context, cfg config.AppConfig) error {
	// Step 2: Keep the resolved config, saving it when asked
	a.cfg = cfg
	if cfg.SaveDefaults {
		if err := a.settings.SaveSettings(cfg.Settings()); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	// Step 3: The dashboard owns the terminal, so logs go to a file
	if err := a.initializeLogging(); err != nil {
		return err
	}
	defer a.shutdown()

	// Step 4: Runtime, journal and watcher
	a.rt = runtime.New(cfg.Slots)
	a.initializeJournal()
	if err := a.initializeWatcher(); err != nil {
		return err
	}

	// Step 5: MCP server
	a.initializeMCPServer()

	log.Printf("claudewatch started: %d slot(s), config %s", cfg.Slots, a.settings.GetConfigPath())
	return a.serve(ctx)
}

// loadPersistedState loads settings and session labels from disk
func (a *App) loadPersistedState() error {
	sm, err := settings.NewManager()
	if err != nil {
		return fmt.Errorf("initialize settings: %w", err)
	}
	a.settings = sm

	labels, err := settings.NewLabelStore(sm.GetConfigPath())
	if err != nil {
		// labels are cosmetic
		log.Printf("Warning: failed to load session labels: %v", err)
		return nil
	}
	a.labels = labels
	return nil
}

func (a *App) initializeLogging() error {
	if a.cfg.Headless {
		return nil
	}
	f, err := os.OpenFile(a.settings.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f
	log.SetOutput(f)
	return nil
}

// initializeJournal opens the journal. A journal that cannot be opened is
// logged and the app runs without one.
func (a *App) initializeJournal() {
	if a.cfg.JournalPath == "" {
		return
	}
	store, err := journal.Open(a.cfg.JournalPath)
	if err != nil {
		log.Printf("[journal] disabled: %v", err)
		return
	}
	a.journal = store
	log.Printf("[journal] recording to %s", store.Path())
}

func (a *App) initializeWatcher() error {
	if a.cfg.Follow != "" {
		log.Printf("[watcher] following %s, no local files watched", a.cfg.Follow)
		return nil
	}
	w, err := watcher.New(a.cfg.WatcherOptions(), a.rt.Emit)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	a.watcher = w
	for _, dir := range w.Dirs() {
		log.Printf("[watcher] watching %s", dir)
	}
	return nil
}

func (a *App) initializeMCPServer() {
	if a.cfg.MCPPort <= 0 {
		return
	}
	a.mcpServer = mcpserver.NewMCPService(a.cfg.MCPPort, a.settings.GetConfigPath(), a.rt)
	if a.journal != nil {
		a.mcpServer.SetJournal(a.journal)
	}
	if a.labels != nil {
		a.mcpServer.SetLabels(a.labels)
	}
	if a.watcher != nil {
		a.mcpServer.SetStatusFunc(a.watcher.Status)
	}
}

// shutdown releases resources opened during startup
func (a *App) shutdown() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			log.Printf("[journal] close: %v", err)
		}
	}
	if a.logFile != nil {
		log.SetOutput(os.Stderr)
		a.logFile.Close()
	}
}
