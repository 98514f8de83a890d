package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/leapstack-labs/leapdb/pkg/adapter"
	duckdbdriver "github.com/marcboeker/go-duckdb"
)

// Statement executes SQL text over the raw go-duckdb connection.
//
// DuckDB answers every statement with a result, writes included: a single
// Count column holding the number of changed rows. Execute asks the
// prepared statement for its type instead and reports writes and DDL as
// update counts. When the text holds several statements the driver runs
// all but the last one while preparing, so only the last is reported.
type Statement struct {
	*adapter.SQLStatement
	conn *sql.Conn
}

func newStatement(conn *sql.Conn) *Statement {
	return &Statement{SQLStatement: adapter.NewSQLStatement(conn), conn: conn}
}

// Execute runs query and reports one Result for it.
func (s *Statement) Execute(ctx context.Context, query string) (adapter.Results, error) {
	var r adapter.Result
	err := s.conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*duckdbdriver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}

		ds, err := c.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		stmt, ok := ds.(*duckdbdriver.Stmt)
		if !ok {
			_ = ds.Close()
			return fmt.Errorf("unexpected driver statement %T", ds)
		}
		defer func() { _ = stmt.Close() }()

		kind, err := stmt.StatementType()
		if err != nil {
			return err
		}
		r, err = run(ctx, stmt, kind)
		return err
	})
	if err != nil {
		return nil, err
	}
	return adapter.NewSliceResults([]adapter.Result{r}), nil
}

func run(ctx context.Context, stmt *duckdbdriver.Stmt, kind duckdbdriver.StmtType) (adapter.Result, error) {
	if returnsRows(kind) {
		rows, err := stmt.QueryContext(ctx, nil)
		if err != nil {
			return adapter.Result{}, err
		}
		if err := rows.Close(); err != nil {
			return adapter.Result{}, err
		}
		return adapter.Result{ResultSet: true, UpdateCount: adapter.NoUpdateCount}, nil
	}

	res, err := stmt.ExecContext(ctx, []driver.NamedValue{})
	if err != nil {
		return adapter.Result{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = adapter.SuccessNoInfo
	}
	return adapter.Result{UpdateCount: n}, nil
}

// returnsRows reports whether statements of kind produce a result set of
// their own rather than a change count.
func returnsRows(kind duckdbdriver.StmtType) bool {
	switch kind {
	case duckdbdriver.STATEMENT_TYPE_SELECT,
		duckdbdriver.STATEMENT_TYPE_EXPLAIN,
		duckdbdriver.STATEMENT_TYPE_PRAGMA,
		duckdbdriver.STATEMENT_TYPE_CALL,
		duckdbdriver.STATEMENT_TYPE_RELATION:
		return true
	}
	return false
}

var _ adapter.Statement = (*Statement)(nil)
