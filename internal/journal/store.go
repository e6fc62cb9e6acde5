// Package journal keeps an append-only SQLite record of every envelope the
// slots emit. It is for inspection after the fact; the watcher never reads
// it back.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"claudewatch/internal/types"
)

// Store handles SQLite persistence for emitted envelopes
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one journaled envelope.
type Entry struct {
	ID    string           `json:"id"`
	Type  string           `json:"type"`
	Slot  int              `json:"slot"`
	Path  string           `json:"path,omitempty"`
	Event *types.SlotEvent `json:"event,omitempty"`
	Time  time.Time        `json:"time"`
}

// Open opens or creates a journal database at the given path
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	// single connection serializes writers
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS envelopes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			slot INTEGER NOT NULL,
			path TEXT,
			kind TEXT,
			message_id TEXT,
			tool_name TEXT,
			content TEXT,
			is_complete INTEGER DEFAULT 0,
			is_history INTEGER DEFAULT 0,
			is_update INTEGER DEFAULT 0,
			input_tokens INTEGER DEFAULT 0,
			output_tokens INTEGER DEFAULT 0,
			cache_creation_tokens INTEGER DEFAULT 0,
			cache_read_tokens INTEGER DEFAULT 0,
			cost_usd REAL DEFAULT 0,
			has_usage INTEGER DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_envelopes_slot ON envelopes(slot, seq);
		CREATE INDEX IF NOT EXISTS idx_envelopes_message ON envelopes(message_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append records one envelope. Usage envelopes are not slot output and are
// skipped.
func (s *Store) Append(env types.Envelope) error {
	if env.Type == types.EnvelopeUsage {
		return nil
	}

	var (
		kind, messageID, toolName, content  string
		complete, history, update, hasUsage int
		usage                               types.Usage
	)
	if ev := env.Event; ev != nil {
		kind = string(ev.Kind)
		messageID = ev.MessageID
		toolName = ev.ToolName
		content = ev.Content
		complete = boolToInt(ev.IsComplete)
		history = boolToInt(ev.IsHistory)
		update = boolToInt(ev.IsUpdate)
		if ev.Usage != nil {
			usage = *ev.Usage
			hasUsage = 1
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO envelopes (id, type, slot, path, kind, message_id, tool_name, content,
			is_complete, is_history, is_update, input_tokens, output_tokens,
			cache_creation_tokens, cache_read_tokens, cost_usd, has_usage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, env.ID, string(env.Type), env.Slot, env.Path, kind, messageID, toolName, content,
		complete, history, update, usage.InputTokens, usage.OutputTokens,
		usage.CacheCreationTokens, usage.CacheReadTokens, usage.CostUSD, hasUsage, env.Time.UnixMilli())
	if err != nil {
		return fmt.Errorf("append envelope %s: %w", env.ID, err)
	}
	return nil
}

// Recent returns up to limit of the newest entries for slot, oldest first.
func (s *Store) Recent(slot, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, type, slot, path, kind, message_id, tool_name, content,
			is_complete, is_history, is_update, input_tokens, output_tokens,
			cache_creation_tokens, cache_read_tokens, cost_usd, has_usage, created_at
		FROM envelopes
		WHERE slot = ?
		ORDER BY seq DESC
		LIMIT ?
	`, slot, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest first from the query; callers want file order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if entries == nil {
		return []Entry{}, nil
	}
	return entries, nil
}

// Count returns the number of journaled envelopes.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM envelopes`).Scan(&n)
	return n, err
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry                                    Entry
		path, kind, messageID, toolName, content sql.NullString
		complete, history, update, hasUsage      int
		usage                                    types.Usage
		createdAt                                int64
	)
	err := rows.Scan(&entry.ID, &entry.Type, &entry.Slot, &path, &kind, &messageID, &toolName, &content,
		&complete, &history, &update, &usage.InputTokens, &usage.OutputTokens,
		&usage.CacheCreationTokens, &usage.CacheReadTokens, &usage.CostUSD, &hasUsage, &createdAt)
	if err != nil {
		return entry, err
	}

	entry.Path = path.String
	entry.Time = time.UnixMilli(createdAt)
	if entry.Type == string(types.EnvelopeEvent) {
		ev := &types.SlotEvent{
			Event: types.Event{
				Kind:       types.EventKind(kind.String),
				Content:    content.String,
				MessageID:  messageID.String,
				IsComplete: complete != 0,
				ToolName:   toolName.String,
			},
			Slot:      entry.Slot,
			IsHistory: history != 0,
			IsUpdate:  update != 0,
		}
		if hasUsage != 0 {
			ev.Usage = &usage
		}
		entry.Event = ev
	}
	return entry, nil
}

// Run appends every envelope from envs until the channel closes or ctx is
// done. Write failures are logged and skipped.
func (s *Store) Run(ctx context.Context, envs <-chan types.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-envs:
			if !ok {
				return
			}
			if err := s.Append(env); err != nil {
				log.Printf("[journal] %v", err)
			}
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
