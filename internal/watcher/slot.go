package watcher

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"claudewatch/internal/types"
)

// maxPending bounds an unterminated trailing line held between reads.
const maxPending = 10 * 1024 * 1024

// SlotState is the lifecycle state of a slot.
type SlotState int

const (
	SlotNoFile SlotState = iota
	SlotReplaying
	SlotLive
)

// String returns a human-readable name for the state.
func (s SlotState) String() string {
	switch s {
	case SlotReplaying:
		return "replaying"
	case SlotLive:
		return "live"
	default:
		return "no-file"
	}
}

// SlotStatus is a point-in-time snapshot of a slot.
type SlotStatus struct {
	Slot      int       `json:"slot"`
	Path      string    `json:"path,omitempty"`
	State     string    `json:"state"`
	Cursor    int64     `json:"cursor"`
	MergeKeys int       `json:"mergeKeys"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// =============================================================================
// SLOT WATCHER - follows the rank-th newest session file
// =============================================================================

// SlotWatcher owns one session slot: the selected file, its byte cursor and
// the merge state. Slot i follows the i-th most recently modified file.
//
// Work for a slot happens on its Run goroutine. mu guards the slot state;
// EmitFunc is called with mu held and must not call back into the slot
// except for Status, which reads a snapshot published under statusMu at
// every state change.
type SlotWatcher struct {
	slot int
	opts Options
	emit EmitFunc

	watcher     *fsnotify.Watcher // nil when notifications are unavailable
	watchedDirs map[string]bool

	mu          sync.Mutex
	initialized bool
	path        string
	state       SlotState
	cursor      int64
	pending     []byte
	merger      *Merger
	updatedAt   time.Time

	statusMu sync.Mutex
	status   SlotStatus
}

// NewSlotWatcher creates the watcher for one slot. If the platform watch
// facility cannot be created the slot falls back to polling.
func NewSlotWatcher(slot int, opts Options, emit EmitFunc) *SlotWatcher {
	opts = opts.withDefaults()
	s := &SlotWatcher{
		slot:        slot,
		opts:        opts,
		emit:        emit,
		watchedDirs: make(map[string]bool),
		merger:      NewMerger(slot),
		status:      SlotStatus{Slot: slot, State: SlotNoFile.String()},
	}
	if w, err := fsnotify.NewWatcher(); err == nil {
		s.watcher = w
	} else {
		log.Printf("[watcher] slot %d: notifications unavailable, polling only: %v", slot, err)
	}
	return s
}

// =============================================================================
// EVENT LOOP
// =============================================================================

// Run selects the slot's file and tails it until ctx is cancelled.
// Poll ticks and file system notifications are handled on this goroutine
// only, so they never interleave.
func (s *SlotWatcher) Run(ctx context.Context) {
	defer s.close()

	s.watchDirs()
	s.Refresh()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if s.watcher != nil {
		events = s.watcher.Events
		errs = s.watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.watchDirs()
			s.Refresh()
			s.Tail()
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(event)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.debugf("watch error: %v", err)
		}
	}
}

func (s *SlotWatcher) handleEvent(event fsnotify.Event) {
	s.mu.Lock()
	current := s.path
	s.mu.Unlock()

	if event.Name == current {
		if event.Has(fsnotify.Write) {
			s.Tail()
		} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			s.Refresh()
		}
		return
	}

	if !matchesExt(s.opts.Dirs, s.opts.Extension, event.Name) {
		return
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		s.debugf("directory change %s %s", event.Op, event.Name)
		s.Refresh()
	}
}

// watchDirs adds a directory watch for every configured directory not yet
// watched. Directories that do not exist yet are retried on the next poll.
func (s *SlotWatcher) watchDirs() {
	if s.watcher == nil {
		return
	}
	for _, dir := range s.opts.Dirs {
		if s.watchedDirs[dir] {
			continue
		}
		if err := s.watcher.Add(dir); err != nil {
			s.debugf("cannot watch %s: %v", dir, err)
			continue
		}
		s.watchedDirs[dir] = true
	}
}

func (s *SlotWatcher) close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

// =============================================================================
// SELECTION
// =============================================================================

// Refresh re-runs file selection and switches files when the slot's pick
// changed. A file whose open failed earlier is retried.
func (s *SlotWatcher) Refresh() {
	path, _ := SelectFile(s.opts.Dirs, s.opts.Extension, s.slot)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.publish()

	if s.initialized && path == s.path {
		if path != "" && s.state == SlotNoFile {
			s.open()
		}
		return
	}
	s.initialized = true
	s.switchTo(path)
}

// switchTo tears down the current file and opens path. Empty path means no
// candidate exists. Caller holds mu.
func (s *SlotWatcher) switchTo(path string) {
	if s.path != "" && s.watcher != nil {
		s.watcher.Remove(s.path)
	}
	s.merger.Reset()
	s.pending = nil
	s.cursor = 0
	s.state = SlotNoFile
	s.path = path
	s.updatedAt = time.Now()
	s.publish()

	if path == "" {
		s.debugf("no file")
		s.emit(types.NewNoFileEnvelope(s.slot))
		return
	}

	s.debugf("file changed to %s", path)
	s.emit(types.NewFileEnvelope(s.slot, path))
	s.open()
}

// open replays the tail of the current file as history and positions the
// cursor at the end of what was read. Caller holds mu.
func (s *SlotWatcher) open() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.debugf("open %s: %v", s.path, err)
		return
	}
	s.state = SlotReplaying
	s.publish()

	lines := s.splitLines(data)
	if len(lines) > s.opts.ReplayLines {
		lines = lines[len(lines)-s.opts.ReplayLines:]
	}
	for _, line := range lines {
		s.feed(line, true)
	}

	s.cursor = int64(len(data))
	s.state = SlotLive
	s.updatedAt = time.Now()
	s.debugf("replayed %d lines from %s, cursor=%d", len(lines), s.path, s.cursor)

	if s.watcher != nil {
		if err := s.watcher.Add(s.path); err != nil {
			s.debugf("cannot watch %s: %v", s.path, err)
		}
	}
}

// =============================================================================
// TAILING
// =============================================================================

// Tail reads bytes appended since the cursor and feeds them as live input.
// A file that did not grow, or shrank, is left alone.
func (s *SlotWatcher) Tail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.publish()

	if s.path == "" || s.state != SlotLive {
		return
	}
	info, err := os.Stat(s.path)
	if err != nil {
		s.debugf("stat %s: %v", s.path, err)
		return
	}
	size := info.Size()
	if size <= s.cursor {
		return
	}

	chunk, err := readRange(s.path, s.cursor, size)
	if err != nil {
		s.debugf("read %s [%d,%d): %v", s.path, s.cursor, size, err)
		return
	}
	s.debugf("read %s [%d,%d)", s.path, s.cursor, s.cursor+int64(len(chunk)))
	s.cursor += int64(len(chunk))
	s.updatedAt = time.Now()

	for _, line := range s.splitLines(chunk) {
		s.feed(line, false)
	}
}

// readRange reads exactly the bytes [start, end) of path, or fewer if the
// file was truncated meanwhile.
func readRange(path string, start, end int64) ([]byte, error) {
	if end <= start {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(file, end-start))
}

// splitLines splits data into non-blank lines. An unterminated last line is
// kept for the next read unless it already parses as a record. Caller holds
// mu.
func (s *SlotWatcher) splitLines(data []byte) []string {
	if len(s.pending) > 0 {
		data = append(s.pending, data...)
		s.pending = nil
	}

	parts := bytes.Split(data, []byte("\n"))
	tail := parts[len(parts)-1]
	parts = parts[:len(parts)-1]

	var lines []string
	for _, part := range parts {
		if len(bytes.TrimSpace(part)) > 0 {
			lines = append(lines, string(part))
		}
	}

	if len(bytes.TrimSpace(tail)) > 0 {
		if _, ok := types.ParseRecord(string(tail)); ok {
			lines = append(lines, string(tail))
		} else if len(tail) <= maxPending {
			s.pending = bytes.Clone(tail)
		}
	}
	return lines
}

// feed runs one line through parsing, extraction and merging. Caller holds
// mu.
func (s *SlotWatcher) feed(line string, history bool) {
	rec, ok := types.ParseRecord(line)
	if !ok {
		return
	}
	for _, ev := range types.ExtractEvents(rec) {
		if out, emit := s.merger.Apply(ev, history); emit {
			s.emit(types.NewEventEnvelope(out))
		}
	}
}

// =============================================================================
// STATUS
// =============================================================================

// Status returns the last published snapshot of the slot. It never waits
// for a replay or read in progress, so a slot seen mid-replay reports
// "replaying".
func (s *SlotWatcher) Status() SlotStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

// publish copies the slot state into the snapshot read by Status. Caller
// holds mu.
func (s *SlotWatcher) publish() {
	st := SlotStatus{
		Slot:      s.slot,
		Path:      s.path,
		State:     s.state.String(),
		Cursor:    s.cursor,
		MergeKeys: s.merger.Len(),
		UpdatedAt: s.updatedAt,
	}
	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()
}

func (s *SlotWatcher) debugf(format string, args ...any) {
	if !s.opts.Debug {
		return
	}
	log.Printf("[DEBUG] [watcher] slot %d: "+format, append([]any{s.slot}, args...)...)
}
