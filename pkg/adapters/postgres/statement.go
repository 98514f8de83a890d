package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/leapdb/pkg/adapter"
)

// Statement executes SQL text over the raw pgconn connection.
//
// Execute uses the simple query protocol, so one text may hold several
// statements and every one of them yields a Result. Results are collected
// while the raw connection is held and returned afterwards.
type Statement struct {
	conn *sql.Conn
}

// Execute runs query and reports one Result per statement in it.
func (s *Statement) Execute(ctx context.Context, query string) (adapter.Results, error) {
	var items []adapter.Result
	err := s.withPgConn(func(pc *pgconn.PgConn) error {
		mrr := pc.Exec(ctx, query)
		for mrr.NextResult() {
			rr := mrr.ResultReader()
			isSet := len(rr.FieldDescriptions()) > 0
			tag, err := rr.Close()
			if err != nil {
				_ = mrr.Close()
				return err
			}
			r := adapter.Result{ResultSet: isSet, UpdateCount: adapter.NoUpdateCount}
			if !isSet {
				r.UpdateCount = tag.RowsAffected()
			}
			items = append(items, r)
		}
		return mrr.Close()
	})
	if err != nil {
		return nil, err
	}
	return adapter.NewSliceResults(items), nil
}

// ExecuteBatch runs queries one after another over the simple query
// protocol, so an item may hold several commands and a later item may use
// a table created by an earlier one. An item's count is the sum over its
// commands. The first failing item stops the batch and is reported as
// ExecuteFailed inside a *adapter.BatchError.
func (s *Statement) ExecuteBatch(ctx context.Context, queries []string) ([]int64, error) {
	counts := make([]int64, 0, len(queries))
	err := s.withPgConn(func(pc *pgconn.PgConn) error {
		for i, q := range queries {
			n, err := execItem(ctx, pc, q)
			if err != nil {
				counts = append(counts, adapter.ExecuteFailed)
				return &adapter.BatchError{Index: i, Counts: counts, Err: err}
			}
			counts = append(counts, n)
		}
		return nil
	})
	return counts, err
}

func execItem(ctx context.Context, pc *pgconn.PgConn, query string) (int64, error) {
	results, err := pc.Exec(ctx, query).ReadAll()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, r := range results {
		if r.Err != nil {
			return 0, r.Err
		}
		n += r.CommandTag.RowsAffected()
	}
	return n, nil
}

// Close releases the connection back to the adapter.
func (s *Statement) Close() error {
	return s.conn.Close()
}

func (s *Statement) withPgConn(fn func(pc *pgconn.PgConn) error) error {
	return s.conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		return fn(c.Conn().PgConn())
	})
}

var _ adapter.Statement = (*Statement)(nil)
