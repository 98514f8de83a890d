// Package duckdb provides a DuckDB database adapter for leapdb.
package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapdb/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
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
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// An empty path or ":memory:" opens an in-memory database. Options are
// applied as session settings once the connection is up.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := databasePath(cfg.URL)
	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	if err := a.OpenDB(ctx, "duckdb", path, cfg); err != nil {
		return err
	}

	for _, stmt := range settingStatements(cfg.Options) {
		if _, err := a.DB.ExecContext(ctx, stmt); err != nil {
			_ = a.Close()
			a.DB = nil
			return fmt.Errorf("failed to apply duckdb setting: %w", err)
		}
	}
	return nil
}

// NewStatement opens a native statement handle on the pinned connection.
func (a *Adapter) NewStatement(ctx context.Context) (adapter.Statement, error) {
	conn, err := a.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return newStatement(conn), nil
}

// databasePath extracts the database file from a connection URL.
func databasePath(raw string) string {
	path := adapter.StripScheme(adapter.TrimJDBCPrefix(raw), "duckdb")
	if path == "" {
		return ":memory:"
	}
	return path
}

// settingStatements builds SET statements in key order.
func settingStatements(opts map[string]string) []string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stmts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ReplaceAll(opts[k], "'", "''")
		stmts = append(stmts, fmt.Sprintf("SET %s = '%s'", k, v))
	}
	return stmts
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
