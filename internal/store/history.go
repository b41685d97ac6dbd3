// Package store persists checkup run history in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	Pipeline   string
	Args       string
	Status     string
	FailedStep string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepRecord
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StepRecord is one recorded step of a run.
type StepRecord struct {
	Position    int
	Name        string
	Description string
	Status      string
	ExitCode    int
	Duration    time.Duration
	Error       string
}

// HistoryStore records runs and their steps.
// It implements tasks.Observer so steps are stored as they finish.
type HistoryStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open opens (creating if needed) the history database at path.
// Use ":memory:" for a throwaway store.
func Open(path string) (*HistoryStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: stable.
	db.SetMaxOpenConns(1)

	s := &HistoryStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("History store opened at %s", path)
	return s, nil
}

func (s *HistoryStore) initialize() error {
	schema := []string{
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			pipeline TEXT NOT NULL,
			args TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			failed_step TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			exit_code INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, position)
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize history schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// BeginRun records the start of a run.
func (s *HistoryStore) BeginRun(ctx context.Context, id, pipeline, args string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, pipeline, args, status, started_at) VALUES (?, ?, ?, 'running', ?)`,
		id, pipeline, args, startedAt.UnixMilli())
	if err != nil {
		logging.StoreError("BeginRun %s: %v", id, err)
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun stores the final status of a run.
func (s *HistoryStore) FinishRun(ctx context.Context, id, status, failedStep string, runErr error, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, failed_step = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, failedStep, msg, finishedAt.UnixMilli(), id)
	if err != nil {
		logging.StoreError("FinishRun %s: %v", id, err)
		return fmt.Errorf("failed to record run result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// RecordStep stores one step result.
func (s *HistoryStore) RecordStep(ctx context.Context, runID string, step tasks.StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := ""
	if step.Err != nil {
		msg = step.Err.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO steps (run_id, position, name, description, status, exit_code, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, step.Position, step.Name, step.Description, string(step.Status), step.ExitCode, step.Duration.Milliseconds(), msg)
	if err != nil {
		logging.StoreError("RecordStep %s/%d: %v", runID, step.Position, err)
		return fmt.Errorf("failed to record step: %w", err)
	}
	return nil
}

// StepStarted implements tasks.Observer.
func (s *HistoryStore) StepStarted(runID string, position int, step tasks.Step) {
	logging.StoreDebug("run %s step %d %s started", runID, position, step.Name)
}

// StepFinished implements tasks.Observer.
func (s *HistoryStore) StepFinished(runID string, result tasks.StepResult) {
	_ = s.RecordStep(context.Background(), runID, result)
}

// RecordResult stores every step of a finished run that is not yet stored
// (skipped and planned steps never reach the observer) and finalizes the run.
func (s *HistoryStore) RecordResult(ctx context.Context, result *tasks.Result) error {
	for _, step := range result.Steps {
		if step.Status == tasks.StatusSkipped || step.Status == tasks.StatusPlanned {
			if err := s.RecordStep(ctx, result.RunID, step); err != nil {
				return err
			}
		}
	}
	return s.FinishRun(ctx, result.RunID, string(result.Status), result.FailedStep(), result.Err, result.FinishedAt)
}

// Recent returns the most recent runs, newest first, without steps.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pipeline, args, status, failed_step, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns a run with its steps.
func (s *HistoryStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, pipeline, args, status, failed_step, error, started_at, finished_at
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, name, description, status, exit_code, duration_ms, error
		 FROM steps WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st StepRecord
		var durMs int64
		if err := rows.Scan(&st.Position, &st.Name, &st.Description, &st.Status, &st.ExitCode, &durMs, &st.Error); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		st.Duration = time.Duration(durMs) * time.Millisecond
		r.Steps = append(r.Steps, st)
	}
	return &r, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var started, finished int64
	if err := sc.Scan(&r.ID, &r.Pipeline, &r.Args, &r.Status, &r.FailedStep, &r.Error, &started, &finished); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, fmt.Errorf("run not found: %w", err)
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started)
	if finished > 0 {
		r.FinishedAt = time.UnixMilli(finished)
	}
	return r, nil
}
