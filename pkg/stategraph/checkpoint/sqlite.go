package checkpoint

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists checkpoints to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite checkpoint store.
// The path should be a file path (e.g., "./threads.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// seq provides the "most recently written" ordering across branches.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			checkpoint_id TEXT NOT NULL,
			parent_id TEXT,
			superstep INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			frontier TEXT NOT NULL,
			state BLOB NOT NULL,
			UNIQUE (thread_id, checkpoint_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_id
		ON checkpoints(thread_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put implements Store. The insert is append-only; an existing
// (thread_id, checkpoint_id) pair fails with ErrConflict.
func (s *SQLiteStore) Put(cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM checkpoints WHERE thread_id = ? AND checkpoint_id = ?)
	`, cp.ThreadID, cp.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check checkpoint: %w", err)
	}
	if exists {
		return ErrConflict
	}

	frontier, err := json.Marshal(cp.Frontier)
	if err != nil {
		return fmt.Errorf("marshal frontier: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO checkpoints (thread_id, checkpoint_id, parent_id, superstep, created_at, frontier, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cp.ThreadID, cp.ID, cp.ParentID, cp.Superstep,
		cp.CreatedAt.UTC().Format(time.RFC3339Nano), string(frontier), []byte(cp.State))
	if err != nil {
		return fmt.Errorf("put checkpoint: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(threadID, checkpointID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRow(`
		SELECT checkpoint_id, parent_id, superstep, created_at, frontier, state
		FROM checkpoints
		WHERE thread_id = ? AND checkpoint_id = ?
	`, threadID, checkpointID)

	cp, err := scanCheckpoint(threadID, row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return cp, nil
}

// Latest implements Store.
func (s *SQLiteStore) Latest(threadID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRow(`
		SELECT checkpoint_id, parent_id, superstep, created_at, frontier, state
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, threadID)

	cp, err := scanCheckpoint(threadID, row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest checkpoint: %w", err)
	}
	return cp, nil
}

// History implements Store.
func (s *SQLiteStore) History(threadID string) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT checkpoint_id, parent_id, superstep, created_at, frontier, state
		FROM checkpoints
		WHERE thread_id = ?
		ORDER BY seq DESC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(threadID, rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

// DeleteThread implements Store.
func (s *SQLiteStore) DeleteThread(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`DELETE FROM checkpoints WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("delete thread checkpoints: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(threadID string, row scanner) (*Checkpoint, error) {
	var (
		cp        Checkpoint
		parent    sql.NullString
		createdAt string
		frontier  string
		state     []byte
	)
	if err := row.Scan(&cp.ID, &parent, &cp.Superstep, &createdAt, &frontier, &state); err != nil {
		return nil, err
	}

	cp.Version = Version
	cp.ThreadID = threadID
	cp.ParentID = parent.String
	cp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	cp.State = state
	if err := json.Unmarshal([]byte(frontier), &cp.Frontier); err != nil {
		return nil, fmt.Errorf("unmarshal frontier: %w", err)
	}
	return &cp, nil
}
