// Package sqlite provides a SQLite database adapter for leapdb backed by
// the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapdb/pkg/adapter"

	_ "modernc.org/sqlite" // sqlite driver
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DriverName returns the registered driver identifier.
func (a *Adapter) DriverName() string {
	return "sqlite"
}

// Connect opens the database file named by the connection URL.
// Options are applied as PRAGMA statements.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := databasePath(cfg.URL)
	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	if err := a.OpenDB(ctx, "sqlite", path, cfg); err != nil {
		return err
	}

	for _, stmt := range pragmaStatements(cfg.Options) {
		if _, err := a.DB.ExecContext(ctx, stmt); err != nil {
			_ = a.Close()
			a.DB = nil
			return fmt.Errorf("failed to apply sqlite pragma: %w", err)
		}
	}
	return nil
}

func databasePath(raw string) string {
	path := adapter.StripScheme(adapter.TrimJDBCPrefix(raw), "sqlite3", "sqlite")
	if path == "" {
		return ":memory:"
	}
	return path
}

func pragmaStatements(opts map[string]string) []string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stmts := make([]string, 0, len(keys))
	for _, k := range keys {
		stmts = append(stmts, fmt.Sprintf("PRAGMA %s = %s", k, opts[k]))
	}
	return stmts
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
