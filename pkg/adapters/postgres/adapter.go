// Package postgres provides the PostgreSQL drivers for leapdb.
//
// Two drivers are registered: "pgx" executes scripts over the native pgconn
// protocol and reports exact result kinds and row counts, "postgres" uses
// lib/pq through the generic database/sql statement.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/leapdb/pkg/adapter"

	_ "github.com/lib/pq" // postgres driver
)

// Adapter implements the adapter.Adapter interface for PostgreSQL over pgx.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new pgx adapter instance.
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
	return "pgx"
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	connCfg, err := parseConfig(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", connCfg.Host),
		slog.String("database", connCfg.Database))

	return a.Attach(ctx, stdlib.OpenDB(*connCfg), cfg)
}

// parseConfig turns connection settings into a pgx config.
// Credentials from the settings take precedence over ones in the URL.
func parseConfig(cfg adapter.Config) (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(adapter.TrimJDBCPrefix(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	if cfg.Username != "" {
		connCfg.User = cfg.Username
	}
	if cfg.Password != "" {
		connCfg.Password = cfg.Password
	}
	for k, v := range cfg.Options {
		connCfg.RuntimeParams[k] = v
	}
	return connCfg, nil
}

// NewStatement opens a native statement handle on the pinned connection.
func (a *Adapter) NewStatement(ctx context.Context) (adapter.Statement, error) {
	conn, err := a.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &Statement{conn: conn}, nil
}

// PQAdapter implements the adapter.Adapter interface for PostgreSQL over lib/pq.
type PQAdapter struct {
	adapter.BaseSQLAdapter
}

// NewPQ creates a new lib/pq adapter instance.
func NewPQ(logger *slog.Logger) *PQAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PQAdapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DriverName returns the registered driver identifier.
func (a *PQAdapter) DriverName() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *PQAdapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPQDSN(cfg)
	a.Logger.Debug("connecting to postgres", slog.String("driver", "lib/pq"))
	return a.OpenDB(ctx, "postgres", dsn, cfg)
}

// buildPQDSN constructs a lib/pq connection string from the settings.
func buildPQDSN(cfg adapter.Config) string {
	dsn := adapter.WithCredentials(adapter.TrimJDBCPrefix(cfg.URL), cfg.Username, cfg.Password)
	return adapter.WithOptions(dsn, cfg.Options)
}

// Ensure both adapters implement adapter.Adapter interface
var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Adapter = (*PQAdapter)(nil)
)
