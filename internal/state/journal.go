// Package state provides the SQLite-backed task journal. The in-memory
// task store remains the source of truth for live tasks; the journal is an
// archive of tasks that reached a terminal state, surviving eviction so
// past work stays inspectable.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// Journal archives terminal tasks to an SQLite database.
type Journal struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultJournalPath returns the XDG-conventional journal location.
func DefaultJournalPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "kestrel", "journal.db")
}

// Open opens the journal at the given path, creating parent directories and
// the schema as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	j := &Journal{conn: conn, path: path}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.conn.Close()
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) migrate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			executor_id TEXT NOT NULL,
			status TEXT NOT NULL,
			requested_by TEXT,
			capability TEXT,
			packet_id TEXT,
			cost_tokens INTEGER NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			archived_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}

	_, err = j.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at)`)
	if err != nil {
		return fmt.Errorf("create tasks index: %w", err)
	}
	return nil
}

// Archive writes a terminal task to the journal. Re-archiving the same task
// replaces the previous row, so the latest terminal snapshot wins.
func (j *Journal) Archive(t models.Task) error {
	if !t.Status.Terminal() {
		return fmt.Errorf("task %s is not terminal (%s)", t.ID, t.Status)
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", t.ID, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	_, err = j.conn.Exec(`
		INSERT OR REPLACE INTO tasks
			(id, executor_id, status, requested_by, capability, packet_id,
			 cost_tokens, cost_usd, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.ExecutorID, string(t.Status),
		t.Metadata.RequestedBy, t.Metadata.Capability, t.Metadata.PacketID,
		t.Cost.Tokens, t.Cost.USD, string(payload),
		t.Metadata.CreatedAt.UTC().Format(time.RFC3339Nano),
		t.Metadata.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("archive task %s: %w", t.ID, err)
	}
	return nil
}

// Recent returns up to limit archived tasks, newest-first by creation time.
// A non-positive limit returns all archived tasks.
func (j *Journal) Recent(limit int) ([]models.Task, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	query := `SELECT payload FROM tasks ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = j.conn.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = j.conn.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("query archived tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan archived task: %w", err)
		}
		var t models.Task
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("decode archived task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Get returns one archived task by ID.
func (j *Journal) Get(id string) (*models.Task, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var payload string
	err := j.conn.QueryRow(`SELECT payload FROM tasks WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s not archived", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query archived task %s: %w", id, err)
	}

	var t models.Task
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return nil, fmt.Errorf("decode archived task %s: %w", id, err)
	}
	return &t, nil
}

// Count returns the number of archived tasks.
func (j *Journal) Count() (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var n int
	if err := j.conn.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count archived tasks: %w", err)
	}
	return n, nil
}
