package server

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// RunRecord is one finished run.
type RunRecord struct {
	ID          string    `json:"id"`
	Created     time.Time `json:"created"`
	ProgramHash string    `json:"programHash"`
	Output      string    `json:"output"`
	Error       string    `json:"error,omitempty"`
	Steps       int       `json:"steps"`
}

// RunStore persists run records in SQLite.
type RunStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenRunStore opens or creates the run history database at path.
// ":memory:" keeps the history in memory.
func OpenRunStore(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		created      INTEGER NOT NULL,
		program_hash TEXT NOT NULL,
		output       TEXT NOT NULL,
		error        TEXT NOT NULL,
		steps        INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &RunStore{db: db}, nil
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// Save records a run.
func (s *RunStore) Save(r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO runs (id, created, program_hash, output, error, steps) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.Created.UnixNano(), r.ProgramHash, r.Output, r.Error, r.Steps,
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *RunStore) Recent(limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, created, program_hash, output, error, steps FROM runs ORDER BY created DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var created int64
		if err := rows.Scan(&r.ID, &created, &r.ProgramHash, &r.Output, &r.Error, &r.Steps); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Created = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func hashString(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
