package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapdb/internal/cli/config"
	"github.com/leapstack-labs/leapdb/internal/credentials"
	"github.com/leapstack-labs/leapdb/internal/engine"
	"github.com/leapstack-labs/leapdb/internal/source"
	"github.com/leapstack-labs/leapdb/internal/state"
	"github.com/spf13/cobra"
)

// errNoConfig is returned when a command runs without a loaded config.
var errNoConfig = errors.New("configuration not loaded")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Engine  *engine.Engine
	Journal *state.SQLiteStore
}

// NewCommandContext creates a CommandContext with an engine wired to the
// credential store, script sources and journal of the loaded config.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := config.GetConfig(cmd.Context())
	if cfg == nil {
		return nil, nil, errNoConfig
	}
	logger := config.GetLogger(cmd.Context())

	store, err := credentials.Load(cfg.CredentialsFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("loaded credentials", slog.String("path", cfg.CredentialsFile), slog.Int("servers", store.Len()))

	var src source.Source = source.NewLocal()
	if cfg.UsesS3() {
		s3, err := source.NewS3(cmd.Context(), cfg.SourceS3Config())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to configure s3 source: %w", err)
		}
		src = source.NewMux(source.NewLocal(), s3)
	}

	journal, err := openJournal(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	engCfg := engine.Config{
		Settings:    cfg,
		Credentials: store,
		Source:      src,
		Logger:      logger,
	}
	// A nil *SQLiteStore must not become a non-nil interface.
	if journal != nil {
		engCfg.Journal = journal
	}

	cleanup := func() {
		if journal != nil {
			if err := journal.Close(); err != nil {
				logger.Warn("failed to close journal", slog.String("error", err.Error()))
			}
		}
	}

	return &CommandContext{
		Cfg:     cfg,
		Logger:  logger,
		Engine:  engine.New(engCfg),
		Journal: journal,
	}, cleanup, nil
}

// openJournal opens the execution journal, or returns nil when disabled.
func openJournal(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if cfg.JournalPath == "" {
		return nil, nil
	}
	journal := state.NewSQLiteStore(logger)
	if err := journal.Open(cfg.JournalPath); err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return journal, nil
}
