// Package postgres provides the PostgreSQL drivers for leapdb.
//
// This file registers the "pgx" and "postgres" drivers with the adapter
// registry. Import this package with a blank identifier to register them:
//
//	import _ "github.com/leapstack-labs/leapdb/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/leapdb/pkg/adapter"
)

func init() {
	adapter.Register("pgx", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return NewPQ(logger) })
}
