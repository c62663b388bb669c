// Package storage provides the SQLite run-history index.
//
// Information Hiding:
// - SQLite connection management hidden behind the store
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run statuses recorded in the index.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is one investigation run as stored in the index.
type RunRecord struct {
	ID         string
	Sequence   int
	Dir        string
	BugFile    string
	Status     string
	FinalPath  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunStore records investigation runs in a SQLite database.
type RunStore struct {
	db *sql.DB
}

// Open opens or creates the run index at path, creating parent
// directories as needed.
func Open(path string) (*RunStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &RunStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// OpenInMemory creates an in-memory run index (useful for testing).
func OpenInMemory() (*RunStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &RunStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

func (s *RunStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			sequence INTEGER NOT NULL,
			dir TEXT NOT NULL,
			bug_file TEXT NOT NULL,
			status TEXT NOT NULL,
			final_path TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_runs_sequence ON runs(sequence);
	`
	_, err := s.db.Exec(schema)
	return err
}

// StartRun records a new run and returns its generated ID.
func (s *RunStore) StartRun(ctx context.Context, sequence int, dir, bugFile string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, sequence, dir, bug_file, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, sequence, dir, bugFile, StatusRunning, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}
	return id, nil
}

// FinishRun marks a run completed or failed, recording the final artifact
// path when there is one.
func (s *RunStore) FinishRun(ctx context.Context, id, status, finalPath string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, final_path = ?, finished_at = ? WHERE id = ?`,
		status, finalPath, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// Runs returns all recorded runs, newest sequence first.
func (s *RunStore) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sequence, dir, bug_file, status, final_path, started_at, finished_at
		 FROM runs ORDER BY sequence DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Sequence, &r.Dir, &r.BugFile, &r.Status, &r.FinalPath, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
