// Package engine runs the database operations against the configured
// targets. Targets are processed one after another, each over a single
// connection, and the first error stops the whole operation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdb/internal/cli/config"
	"github.com/leapstack-labs/leapdb/internal/credentials"
	"github.com/leapstack-labs/leapdb/internal/script"
	"github.com/leapstack-labs/leapdb/internal/source"
	"github.com/leapstack-labs/leapdb/internal/state"
	"github.com/leapstack-labs/leapdb/pkg/adapter"
)

// Operation names a database operation.
type Operation string

// Operations.
const (
	OpCreate Operation = "create"
	OpDrop   Operation = "drop"
	OpSchema Operation = "schema"
	OpUpdate Operation = "update"
	OpData   Operation = "data"
)

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case OpCreate, OpDrop, OpSchema, OpUpdate, OpData:
		return true
	}
	return false
}

// UsesAdmin reports whether op runs over the admin connection.
func (op Operation) UsesAdmin() bool {
	return op == OpCreate || op == OpDrop
}

// ErrScriptNotConfigured is returned when create or drop has no script.
var ErrScriptNotConfigured = errors.New("script not configured")

// Config holds engine configuration.
type Config struct {
	// Settings is the loaded configuration
	Settings *config.Config
	// Credentials resolves server ids (optional, empty store if nil)
	Credentials *credentials.Store
	// Source reads scripts (optional, local filesystem if nil)
	Source source.Source
	// Journal records runs (optional, disabled if nil)
	Journal state.Journal
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine orchestrates operations over the configured databases.
type Engine struct {
	settings *config.Config
	creds    *credentials.Store
	src      source.Source
	journal  state.Journal
	logger   *slog.Logger
}

// Result summarizes one operation against one database.
type Result struct {
	Database  string
	Operation Operation
	RunID     string
	Files     []script.FileResult
}

// Statements returns the number of statements executed.
func (r Result) Statements() int {
	n := 0
	for _, f := range r.Files {
		n += f.Statements
	}
	return n
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	src := cfg.Source
	if src == nil {
		src = source.NewLocal()
	}
	creds := cfg.Credentials
	if creds == nil {
		creds = credentials.NewStore()
	}
	return &Engine{
		settings: cfg.Settings,
		creds:    creds,
		src:      src,
		journal:  cfg.Journal,
		logger:   logger,
	}
}

// Validate checks the connection settings of every selected database
// without connecting.
func (e *Engine) Validate() error {
	dbs, err := e.settings.SelectDatabases()
	if err != nil {
		return err
	}
	for _, db := range dbs {
		if err := db.Validate(e.creds); err != nil {
			return fmt.Errorf("database %s: %w", db.Name, err)
		}
	}
	return nil
}

// Run executes op against every selected database in configured order.
// Each database is validated right before it runs; the first failure
// stops the operation. Results include the failed database.
func (e *Engine) Run(ctx context.Context, op Operation) ([]Result, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	dbs, err := e.settings.SelectDatabases()
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, db := range dbs {
		e.logger.Info("database config", slog.String("database", db.Name), slog.String("operation", string(op)))

		if err := db.Validate(e.creds); err != nil {
			return results, fmt.Errorf("database %s: %w", db.Name, err)
		}

		res, err := e.runDatabase(ctx, db, op)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("database %s: %w", db.Name, err)
		}
	}
	return results, nil
}

func (e *Engine) runDatabase(ctx context.Context, db *config.DatabaseConfig, op Operation) (res Result, err error) {
	res = Result{Database: db.Name, Operation: op}

	run := e.startRun(db.Name, op)
	if run != nil {
		res.RunID = run.ID
		defer func() { e.completeRun(run.ID, err) }()
	}

	conn := db.App
	if op.UsesAdmin() {
		conn = db.Admin
	}

	adp, err := e.connect(ctx, conn)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := adp.Close(); cerr != nil {
			e.logger.Warn("failed to close connection", slog.String("database", db.Name), slog.String("error", cerr.Error()))
		}
	}()

	runner := script.NewRunner(e.src, adp, e.settings.ScriptConfig(db), e.logger)

	switch op {
	case OpCreate, OpDrop:
		path := db.CreateScript
		if op == OpDrop {
			path = db.DropScript
		}
		if path == "" {
			return res, fmt.Errorf("%s: %w", op, ErrScriptNotConfigured)
		}
		fr, err := runner.RunFile(ctx, path)
		res.Files = append(res.Files, fr)
		e.recordScript(run, fr)
		return res, err

	case OpSchema, OpUpdate, OpData:
		for _, dir := range directoriesFor(db, op) {
			files, err := runner.RunDirectory(ctx, dir)
			res.Files = append(res.Files, files...)
			for _, fr := range files {
				e.recordScript(run, fr)
			}
			if err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// connect resolves credentials and opens the single connection for conn.
func (e *Engine) connect(ctx context.Context, conn config.ConnectionConfig) (adapter.Adapter, error) {
	creds, err := credentials.Resolve(conn.Ref(), e.creds)
	if err != nil {
		return nil, err
	}
	cfg := conn.AdapterConfig(creds)

	adp, err := adapter.NewAdapter(cfg, e.logger)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("connecting to database", slog.String("driver", cfg.Driver))
	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return adp, nil
}

func directoriesFor(db *config.DatabaseConfig, op Operation) []string {
	switch op {
	case OpSchema:
		return db.SchemaDirs
	case OpUpdate:
		return db.UpdateDirs
	case OpData:
		return db.DataDirs
	}
	return nil
}

// Journal failures are logged and never fail the operation.

func (e *Engine) startRun(database string, op Operation) *state.Run {
	if e.journal == nil {
		return nil
	}
	run, err := e.journal.CreateRun(database, string(op))
	if err != nil {
		e.logger.Warn("failed to record run", slog.String("error", err.Error()))
		return nil
	}
	e.logger.Debug("created run", slog.String("run_id", run.ID))
	return run
}

func (e *Engine) recordScript(run *state.Run, fr script.FileResult) {
	if run == nil {
		return
	}
	if err := e.journal.RecordScript(run.ID, fr); err != nil {
		e.logger.Warn("failed to record script", slog.String("file", fr.Path), slog.String("error", err.Error()))
	}
}

func (e *Engine) completeRun(runID string, runErr error) {
	if err := e.journal.CompleteRun(runID, runErr); err != nil {
		e.logger.Warn("failed to complete run", slog.String("run_id", runID), slog.String("error", err.Error()))
	}
}
