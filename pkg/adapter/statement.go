package adapter

import (
	"context"
	"database/sql"
)

// SQLStatement is a Statement over a plain database/sql connection.
//
// database/sql has no batch API and does not expose update counts for
// statements run as queries, so Execute reports NoUpdateCount for results
// without columns and ExecuteBatch runs the items one by one.
type SQLStatement struct {
	conn *sql.Conn
}

// NewSQLStatement wraps conn. Closing the statement returns conn to its pool.
func NewSQLStatement(conn *sql.Conn) *SQLStatement {
	return &SQLStatement{conn: conn}
}

// Execute runs query and iterates its result sets.
func (s *SQLStatement) Execute(ctx context.Context, query string) (Results, error) {
	//nolint:rowserrcheck // rows.Err() is checked by rowsResults
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &rowsResults{rows: rows}, nil
}

// ExecuteBatch executes queries in order and stops at the first failure.
func (s *SQLStatement) ExecuteBatch(ctx context.Context, queries []string) ([]int64, error) {
	counts := make([]int64, 0, len(queries))
	for i, q := range queries {
		res, err := s.conn.ExecContext(ctx, q)
		if err != nil {
			counts = append(counts, ExecuteFailed)
			return counts, &BatchError{Index: i, Counts: counts, Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = SuccessNoInfo
		}
		counts = append(counts, n)
	}
	return counts, nil
}

// Close releases the connection back to the adapter.
func (s *SQLStatement) Close() error {
	return s.conn.Close()
}

// rowsResults adapts sql.Rows to Results, one Result per result set.
// Rows of each set are discarded.
type rowsResults struct {
	rows    *sql.Rows
	started bool
	done    bool
	cur     Result
	err     error
}

func (r *rowsResults) Next() bool {
	if r.done {
		return false
	}
	if r.started && !r.rows.NextResultSet() {
		r.finish(r.rows.Err())
		return false
	}
	r.started = true

	cols, err := r.rows.Columns()
	if err != nil {
		r.finish(err)
		return false
	}
	for r.rows.Next() {
	}
	if err := r.rows.Err(); err != nil {
		r.finish(err)
		return false
	}

	r.cur = Result{ResultSet: len(cols) > 0, UpdateCount: NoUpdateCount}
	return true
}

func (r *rowsResults) finish(err error) {
	r.done = true
	r.err = err
}

func (r *rowsResults) Result() Result { return r.cur }

func (r *rowsResults) Err() error { return r.err }

func (r *rowsResults) Close() error { return r.rows.Close() }

// SliceResults is a Results over results that were already collected.
type SliceResults struct {
	items []Result
	pos   int
}

// NewSliceResults returns Results yielding items in order.
func NewSliceResults(items []Result) *SliceResults {
	return &SliceResults{items: items, pos: -1}
}

func (s *SliceResults) Next() bool {
	if s.pos+1 >= len(s.items) {
		s.pos = len(s.items)
		return false
	}
	s.pos++
	return true
}

func (s *SliceResults) Result() Result { return s.items[s.pos] }

func (s *SliceResults) Err() error { return nil }

func (s *SliceResults) Close() error { return nil }
