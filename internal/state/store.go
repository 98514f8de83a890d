// Package state keeps a local journal of script executions using SQLite.
// Each run of an operation against one database is recorded together with
// the scripts it executed.
package state

import (
	"time"

	"github.com/leapstack-labs/leapdb/internal/script"
)

// RunStatus represents the status of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one operation executed against one database.
type Run struct {
	ID          string
	Database    string
	Operation   string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	Scripts     int
}

// ScriptRun is one script executed during a run.
type ScriptRun struct {
	RunID      string
	Path       string
	Statements int
	Elapsed    time.Duration
	Error      string
	ExecutedAt time.Time
}

// Journal records runs and the scripts they execute.
type Journal interface {
	CreateRun(database, operation string) (*Run, error)
	RecordScript(runID string, res script.FileResult) error
	CompleteRun(runID string, runErr error) error
	ListRuns(limit int) ([]*Run, error)
	ListScripts(runID string) ([]*ScriptRun, error)
	Close() error
}

var _ Journal = (*SQLiteStore)(nil)
