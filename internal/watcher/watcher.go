// Package watcher follows Claude Code session files. Each slot tracks the
// n-th most recently modified JSONL file across the watched directories,
// replays its recent history and tails appended lines into display events.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"claudewatch/internal/types"
)

// Defaults
const (
	DefaultExtension    = ".jsonl"
	DefaultPollInterval = 5 * time.Second
	DefaultReplayLines  = 50
)

// ErrNoDirectories is returned when a watcher is created without directories.
var ErrNoDirectories = errors.New("watcher: no directories configured")

// EmitFunc receives every notification produced by a slot.
type EmitFunc func(types.Envelope)

// Options configures the watcher. Zero values fall back to the defaults.
type Options struct {
	Dirs         []string
	Slots        int
	Extension    string
	PollInterval time.Duration
	ReplayLines  int
	Debug        bool
}

func (o Options) withDefaults() Options {
	if o.Slots < 1 {
		o.Slots = 1
	}
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ReplayLines <= 0 {
		o.ReplayLines = DefaultReplayLines
	}
	return o
}

// =============================================================================
// WATCHER - owns all slots
// =============================================================================

// Watcher runs one SlotWatcher per configured slot. Slots share nothing and
// run in parallel.
type Watcher struct {
	opts  Options
	slots []*SlotWatcher

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher. Slots are created immediately but do no work until
// Start is called.
func New(opts Options, emit EmitFunc) (*Watcher, error) {
	if len(opts.Dirs) == 0 {
		return nil, ErrNoDirectories
	}
	if emit == nil {
		emit = func(types.Envelope) {}
	}
	opts = opts.withDefaults()

	w := &Watcher{opts: opts}
	for i := 0; i < opts.Slots; i++ {
		w.slots = append(w.slots, NewSlotWatcher(i, opts, emit))
	}
	return w, nil
}

// Start launches every slot. It returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	for _, slot := range w.slots {
		w.wg.Add(1)
		go func(s *SlotWatcher) {
			defer w.wg.Done()
			s.Run(ctx)
		}(slot)
	}
}

// Stop cancels every slot and waits for them to release their watches.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// Status returns a snapshot of every slot, in slot order.
func (w *Watcher) Status() []SlotStatus {
	statuses := make([]SlotStatus, 0, len(w.slots))
	for _, slot := range w.slots {
		statuses = append(statuses, slot.Status())
	}
	return statuses
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	return append([]string(nil), w.opts.Dirs...)
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// EncodeProjectPath converts a project folder to the directory name Claude
// Code uses under projects/ (path separators and dots become dashes).
func EncodeProjectPath(folder string) string {
	return strings.NewReplacer("/", "-", ".", "-").Replace(folder)
}

// ProjectsDir returns the projects directory under a Claude home.
func ProjectsDir(claudeHome string) string {
	return filepath.Join(claudeHome, "projects")
}

// SessionsDir returns the directory holding session files for folder.
func SessionsDir(claudeHome, folder string) string {
	return filepath.Join(ProjectsDir(claudeHome), EncodeProjectPath(folder))
}
