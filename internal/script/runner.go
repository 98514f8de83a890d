package script

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapdb/internal/source"
	"github.com/leapstack-labs/leapdb/pkg/adapter"
)

// StatementOpener opens statement handles. adapter.Adapter implements it.
type StatementOpener interface {
	NewStatement(ctx context.Context) (adapter.Statement, error)
}

// FileResult summarizes the execution of one script file.
type FileResult struct {
	Path       string
	Statements int
	Elapsed    time.Duration
	Err        error
}

// Runner executes script files one after another over a single connection.
type Runner struct {
	src    source.Source
	conn   StatementOpener
	cfg    *Config
	logger *slog.Logger
}

// NewRunner creates a Runner. cfg is shared with the caller: an encoding
// resolved from the platform default is written back to it.
func NewRunner(src source.Source, conn StatementOpener, cfg *Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{src: src, conn: conn, cfg: cfg, logger: logger}
}

// RunDirectory executes the scripts directly inside dir in name order.
// It stops at the first failing script and returns the results up to and
// including that one.
func (r *Runner) RunDirectory(ctx context.Context, dir string) ([]FileResult, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script configuration: %w", err)
	}

	entry, err := r.src.Stat(ctx, dir)
	if err != nil {
		return nil, &NotADirectoryError{Path: dir, Err: err}
	}
	if !entry.IsDir {
		return nil, &NotADirectoryError{Path: dir}
	}

	entries, err := r.src.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	scripts := OrderScripts(entries)
	r.logger.Debug("scripts found", slog.String("dir", dir), slog.Int("count", len(scripts)))

	results := make([]FileResult, 0, len(scripts))
	for _, s := range scripts {
		res, err := r.RunFile(ctx, s.Path)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// RunFile executes one script file. The stream and the statement handle
// are closed in that order on every path.
func (r *Runner) RunFile(ctx context.Context, path string) (FileResult, error) {
	res := FileResult{Path: path}
	if err := r.cfg.Validate(); err != nil {
		res.Err = fmt.Errorf("invalid script configuration: %w", err)
		return res, res.Err
	}
	start := time.Now()

	count, err := r.runFile(ctx, path)
	res.Statements = count
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("script %s: %w", path, err)
		return res, res.Err
	}

	r.logger.Info(fmt.Sprintf("%d statements executed from %s", count, path))
	r.logger.Info(fmt.Sprintf("script completed execution in %g second(s)", res.Elapsed.Seconds()))
	return res, nil
}

func (r *Runner) runFile(ctx context.Context, path string) (count int, err error) {
	if r.cfg.UseBatch {
		r.logger.Info("batch executing script", slog.String("file", path))
	} else {
		r.logger.Info("executing script", slog.String("file", path))
	}

	stream, err := Decode(ctx, r.src, path, r.cfg, r.logger)
	if err != nil {
		return 0, err
	}

	stmt, err := r.conn.NewStatement(ctx)
	if err != nil {
		_ = stream.Close()
		return 0, err
	}

	defer func() {
		if cerr := stream.Close(); cerr != nil {
			r.logger.Warn("failed to close script", slog.String("file", path), slog.String("error", cerr.Error()))
		}
		if cerr := stmt.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close statement: %w", cerr)
		}
	}()

	exec := NewExecutor(stmt, r.cfg.MaxResults, r.logger)
	var sink Sink = NewDirectSink(exec)
	if r.cfg.UseBatch {
		sink = NewBatchSink(exec, r.cfg.BatchSize)
	}

	sp := NewSplitter(r.cfg.SQLDelimiter, r.cfg.TransactionDelimiter)
	return Split(ctx, stream, sp, sink)
}
