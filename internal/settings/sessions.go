package settings

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

const SessionLabelsFile = "session-labels.json"

// SessionLabels maps session file paths to user-chosen labels.
// Example: {"/home/me/.claude/projects/-src-app/abc.jsonl": "auth refactor"}
type SessionLabels map[string]string

// LabelStore persists session labels shown in slot headers.
type LabelStore struct {
	configPath string
	labels     SessionLabels
	mu         sync.RWMutex
}

// NewLabelStore loads labels from configPath. A missing file is not an error.
func NewLabelStore(configPath string) (*LabelStore, error) {
	ls := &LabelStore{
		configPath: configPath,
		labels:     make(SessionLabels),
	}
	if err := ls.load(); err != nil {
		return nil, err
	}
	return ls, nil
}

// Label returns the label for a session file, or "".
func (ls *LabelStore) Label(path string) string {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.labels[path]
}

// SetLabel sets the label for a session file. An empty label removes it.
func (ls *LabelStore) SetLabel(path, label string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if label == "" {
		delete(ls.labels, path)
	} else {
		ls.labels[path] = label
	}
	return ls.save()
}

// All returns a copy of every label.
func (ls *LabelStore) All() SessionLabels {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return maps.Clone(ls.labels)
}

// load reads session labels from disk
func (ls *LabelStore) load() error {
	path := filepath.Join(ls.configPath, SessionLabelsFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	return json.Unmarshal(data, &ls.labels)
}

// save writes session labels to disk
func (ls *LabelStore) save() error {
	path := filepath.Join(ls.configPath, SessionLabelsFile)

	jsonData, err := json.MarshalIndent(ls.labels, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, jsonData, 0644)
}
