package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapdb/internal/script"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

var errNotOpened = errors.New("database not opened")

// SQLiteStore implements Journal using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite journal instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the journal at path and applies pending migrations.
// Use ":memory:" for an in-memory journal.
func (s *SQLiteStore) Open(path string) error {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create journal directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys = ON"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to configure sqlite database: %w", err)
		}
	}

	s.db = db
	s.path = path
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	s.logger.Debug("journal opened", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// CreateRun records the start of an operation against a database.
func (s *SQLiteStore) CreateRun(database, operation string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &Run{
		ID:        generateID(),
		Database:  database,
		Operation: operation,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("database", database), slog.String("operation", operation))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, database_name, operation, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Database, run.Operation, string(run.Status), run.StartedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// RecordScript records one executed script of a run.
func (s *SQLiteStore) RecordScript(runID string, res script.FileResult) error {
	if s.db == nil {
		return errNotOpened
	}

	_, err := s.db.Exec(
		`INSERT INTO script_runs (run_id, path, statements, elapsed_ns, error, executed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, res.Path, res.Statements, int64(res.Elapsed), errString(res.Err), time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record script: %w", err)
	}
	return nil
}

// CompleteRun marks a run as completed, or failed when runErr is non-nil.
func (s *SQLiteStore) CompleteRun(runID string, runErr error) error {
	if s.db == nil {
		return errNotOpened
	}

	status := RunStatusCompleted
	if runErr != nil {
		status = RunStatusFailed
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC().UnixNano(), errString(runErr), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT r.id, r.database_name, r.operation, r.status, r.started_at, r.completed_at, r.error,
		        (SELECT COUNT(*) FROM script_runs sr WHERE sr.run_id = r.id)
		 FROM runs r ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var status string
		var startedAt int64
		var completedAt sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Database, &run.Operation, &status, &startedAt, &completedAt, &errMsg, &run.Scripts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Status = RunStatus(status)
		run.StartedAt = time.Unix(0, startedAt).UTC()
		if completedAt.Valid {
			t := time.Unix(0, completedAt.Int64).UTC()
			run.CompletedAt = &t
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ListScripts returns the scripts of a run in execution order.
func (s *SQLiteStore) ListScripts(runID string) ([]*ScriptRun, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.Query(
		`SELECT run_id, path, statements, elapsed_ns, error, executed_at
		 FROM script_runs WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scripts []*ScriptRun
	for rows.Next() {
		sr := &ScriptRun{}
		var elapsed, executedAt int64
		var errMsg sql.NullString
		if err := rows.Scan(&sr.RunID, &sr.Path, &sr.Statements, &elapsed, &errMsg, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan script: %w", err)
		}
		sr.Elapsed = time.Duration(elapsed)
		sr.ExecutedAt = time.Unix(0, executedAt).UTC()
		sr.Error = errMsg.String
		scripts = append(scripts, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	return scripts, nil
}

// errString maps a nil error to a NULL column.
func errString(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}
