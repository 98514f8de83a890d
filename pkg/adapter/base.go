package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close and NewStatement implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Attach pins db to a single connection, verifies it and stores it on the adapter.
// The db is closed if the ping fails.
func (b *BaseSQLAdapter) Attach(ctx context.Context, db *sql.DB, cfg Config) error {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	b.DB = db
	b.Cfg = cfg
	return nil
}

// OpenDB opens a database/sql handle for driverName and attaches it.
func (b *BaseSQLAdapter) OpenDB(ctx context.Context, driverName, dsn string, cfg Config) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}
	return b.Attach(ctx, db, cfg)
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// NewStatement opens a generic database/sql statement handle.
func (b *BaseSQLAdapter) NewStatement(ctx context.Context) (Statement, error) {
	conn, err := b.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return NewSQLStatement(conn), nil
}

// Conn checks out the pinned connection.
func (b *BaseSQLAdapter) Conn(ctx context.Context) (*sql.Conn, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	conn, err := b.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}
