package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const (
	ConfigDir    = ".claudewatch"
	SettingsFile = "settings.json"
	LogFile      = "claudewatch.log"
)

// Settings holds persisted defaults. Command-line flags override them.
type Settings struct {
	Dirs                 []string `json:"dirs,omitempty"`        // directories to watch; empty = current project
	Slots                int      `json:"slots"`                 // number of session slots
	Extension            string   `json:"extension"`             // tracked file extension
	PollIntervalSeconds  int      `json:"pollIntervalSeconds"`   // file selection re-check cadence
	ReplayLines          int      `json:"replayLines"`           // history lines replayed on open
	WebSocketPort        int      `json:"webSocketPort"`         // 0 disables the event stream
	MCPPort              int      `json:"mcpPort"`               // 0 disables the MCP server
	JournalPath          string   `json:"journalPath,omitempty"` // empty disables the journal
	UsageCommand         string   `json:"usageCommand,omitempty"`
	UsageIntervalSeconds int      `json:"usageIntervalSeconds"`
	DebugLogging         bool     `json:"debugLogging"`
}

// Manager handles all settings operations
type Manager struct {
	configPath string
	settings   *Settings
	mu         sync.RWMutex
}

// NewManager creates a settings manager rooted at ~/.claudewatch.
func NewManager() (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(filepath.Join(homeDir, ConfigDir))
}

// NewManagerAt creates a settings manager rooted at configPath.
func NewManagerAt(configPath string) (*Manager, error) {
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return nil, err
	}

	m := &Manager{
		configPath: configPath,
		settings:   DefaultSettings(),
	}

	// Missing or unreadable settings fall back to defaults
	_ = m.loadSettings()

	return m, nil
}

// GetConfigPath returns the path to the config directory
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// LogPath returns the log file used while the dashboard owns the terminal.
func (m *Manager) LogPath() string {
	return filepath.Join(m.configPath, LogFile)
}

// DefaultSettings returns default settings
func DefaultSettings() *Settings {
	return &Settings{
		Slots:                1,
		Extension:            ".jsonl",
		PollIntervalSeconds:  5,
		ReplayLines:          50,
		UsageIntervalSeconds: 60,
	}
}

// GetSettings returns current settings
func (m *Manager) GetSettings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := *m.settings
	s.Dirs = append([]string(nil), m.settings.Dirs...)
	return s
}

// SaveSettings saves settings to disk
func (m *Manager) SaveSettings(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings = &s
	return m.writeJSON(SettingsFile, s)
}

// loadSettings loads settings from disk
func (m *Manager) loadSettings() error {
	return m.readJSON(SettingsFile, m.settings)
}

// writeJSON writes data as JSON to a file
func (m *Manager) writeJSON(filename string, data any) error {
	path := filepath.Join(m.configPath, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, jsonData, 0644)
}

// readJSON reads JSON from a file
func (m *Manager) readJSON(filename string, target any) error {
	path := filepath.Join(m.configPath, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return err
	}

	return json.Unmarshal(data, target)
}
