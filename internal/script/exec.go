package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapdb/pkg/adapter"
)

// Executor submits statements through one statement handle.
type Executor struct {
	stmt       adapter.Statement
	maxResults int
	logger     *slog.Logger
}

// NewExecutor creates an Executor on stmt. maxResults bounds the chained
// results drained per statement; values <= 0 select DefaultMaxResults.
func NewExecutor(stmt adapter.Statement, maxResults int, logger *slog.Logger) *Executor {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{stmt: stmt, maxResults: maxResults, logger: logger}
}

// Exec runs one statement and drains all of its results. Result sets are
// not read; each one is reported with a warning.
func (e *Executor) Exec(ctx context.Context, sql string) error {
	e.logger.Debug("executing statement", slog.String("sql", sql))

	res, err := e.stmt.Execute(ctx, sql)
	if err != nil {
		return &ExecutionError{SQL: sql, Err: err}
	}
	defer func() { _ = res.Close() }()

	n := 0
	for res.Next() {
		n++
		if n > e.maxResults {
			return &ExecutionError{SQL: sql, Err: fmt.Errorf("%w: more than %d chained results", ErrTooManyResults, e.maxResults)}
		}
		r := res.Result()
		if r.ResultSet {
			e.logger.Warn("statement returned a result set", slog.String("sql", sql))
			continue
		}
		if r.UpdateCount != adapter.NoUpdateCount {
			e.logger.Debug("update count", slog.Int64("count", r.UpdateCount))
		}
	}
	if err := res.Err(); err != nil {
		return &ExecutionError{SQL: sql, Err: err}
	}
	return nil
}

// ExecBatch submits stmts as one batch. Blank entries are left out and an
// empty batch is not submitted. The first failed item aborts with an
// ExecutionError naming that item.
func (e *Executor) ExecBatch(ctx context.Context, stmts []string) error {
	items := make([]string, 0, len(stmts))
	for _, s := range stmts {
		if !isBlank(s) {
			items = append(items, s)
		}
	}
	if len(items) == 0 {
		return nil
	}

	e.logger.Debug("executing batch", slog.Int("size", len(items)))
	counts, err := e.stmt.ExecuteBatch(ctx, items)
	if err != nil {
		return &ExecutionError{SQL: failedStatement(items, counts, err), Err: err}
	}

	for i, c := range counts {
		switch {
		case c == adapter.SuccessNoInfo:
			e.logger.Debug("statement executed, no row count available", slog.Int("item", i))
		case c == adapter.ExecuteFailed:
			sql := statementAt(items, i)
			e.logger.Error("statement failed in batch", slog.Int("item", i), slog.String("sql", sql))
			return &ExecutionError{SQL: sql, Err: ErrBatchItemFailed}
		default:
			e.logger.Debug("rows affected", slog.Int("item", i), slog.Int64("count", c))
		}
	}
	return nil
}

// failedStatement picks the text of the item a batch failed on.
func failedStatement(items []string, counts []int64, err error) string {
	var be *adapter.BatchError
	if errors.As(err, &be) && be.Index >= 0 && be.Index < len(items) {
		return items[be.Index]
	}
	for i, c := range counts {
		if c == adapter.ExecuteFailed {
			return statementAt(items, i)
		}
	}
	return strings.Join(items, "\n")
}

func statementAt(items []string, i int) string {
	if i < len(items) {
		return items[i]
	}
	return strings.Join(items, "\n")
}
