// Package adapter provides the database driver contract used by leapdb's
// script engine.
//
// An Adapter owns exactly one open connection to a database target. Script
// files are executed through a Statement, a handle opened from the adapter for
// the duration of one file. Concrete drivers live in pkg/adapters/
// subdirectories and register themselves with Register in their init()
// functions.
package adapter

import (
	"context"
	"errors"
	"fmt"
)

// Config holds the settings needed to open a connection.
type Config struct {
	// Driver is the driver identifier (e.g., "pgx", "postgres", "duckdb", "sqlite").
	// JDBC driver class names are accepted as aliases.
	Driver string

	// URL is the connection URL. A leading "jdbc:" prefix is ignored.
	URL string

	// Username for authentication (already resolved from the credential store)
	Username string

	// Password for authentication
	Password string

	// Options contains additional driver-specific options
	Options map[string]string
}

// Outcome codes reported per batch item by Statement.ExecuteBatch.
// Non-negative values are affected-row counts.
const (
	// SuccessNoInfo means the item succeeded but no row count is available.
	SuccessNoInfo int64 = -2

	// ExecuteFailed means the item failed to execute.
	ExecuteFailed int64 = -3

	// NoUpdateCount is the UpdateCount of a result that carried no count.
	NoUpdateCount int64 = -1
)

// Result is one entry in the possibly chained response to a statement.
type Result struct {
	// ResultSet is true when the result carried rows rather than an update count.
	ResultSet bool

	// UpdateCount is the number of affected rows, or NoUpdateCount.
	UpdateCount int64
}

// Results iterates over the chained results of one executed statement.
// Usage mirrors sql.Rows:
//
//	for res.Next() {
//		r := res.Result()
//	}
//	err := res.Err()
type Results interface {
	Next() bool
	Result() Result
	Err() error
	Close() error
}

// Statement is a handle that submits SQL text over a single connection.
// One Statement is reused for every statement of a script file.
type Statement interface {
	// Execute runs a single SQL text and returns its chained results.
	Execute(ctx context.Context, query string) (Results, error)

	// ExecuteBatch submits all queries as one batch and returns one outcome
	// per query. A failing item may be reported either as ExecuteFailed in
	// the outcomes or through a *BatchError.
	ExecuteBatch(ctx context.Context, queries []string) ([]int64, error)

	// Close releases the handle. The underlying connection stays open.
	Close() error
}

// Adapter defines the interface that all database drivers must implement.
type Adapter interface {
	// Connect opens the single connection used for a database target.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// NewStatement opens a statement handle on the connection.
	NewStatement(ctx context.Context) (Statement, error)

	// DriverName returns the registered driver identifier.
	DriverName() string
}

// ErrNotConnected is returned when an adapter is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BatchError reports the item of a batch that made the driver stop.
type BatchError struct {
	// Index is the position of the failing query in the submitted batch.
	Index int

	// Counts holds the outcomes reported up to and including Index.
	Counts []int64

	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch item %d failed: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
