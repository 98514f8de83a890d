package script

import "context"

// Sink receives the statements produced by the splitter.
type Sink interface {
	// Submit hands over one non-blank statement.
	Submit(ctx context.Context, stmt string) error

	// Flush is called at every transaction boundary.
	Flush(ctx context.Context) error
}

// DirectSink executes every statement as soon as it is submitted.
type DirectSink struct {
	exec *Executor
}

// NewDirectSink returns a DirectSink on exec.
func NewDirectSink(exec *Executor) *DirectSink {
	return &DirectSink{exec: exec}
}

// Submit executes stmt.
func (s *DirectSink) Submit(ctx context.Context, stmt string) error {
	return s.exec.Exec(ctx, stmt)
}

// Flush does nothing; statements are already executed.
func (s *DirectSink) Flush(context.Context) error { return nil }

// BatchSink collects statements and submits them in batches of at most size.
type BatchSink struct {
	exec    *Executor
	size    int
	pending []string
}

// NewBatchSink returns a BatchSink on exec. Sizes below one are treated as one.
func NewBatchSink(exec *Executor, size int) *BatchSink {
	if size < 1 {
		size = 1
	}
	return &BatchSink{exec: exec, size: size, pending: make([]string, 0, size)}
}

// Submit queues stmt and submits the batch once it is full.
func (s *BatchSink) Submit(ctx context.Context, stmt string) error {
	if isBlank(stmt) {
		return nil
	}
	s.pending = append(s.pending, stmt)
	if len(s.pending) >= s.size {
		return s.Flush(ctx)
	}
	return nil
}

// Flush submits the queued statements, if any.
func (s *BatchSink) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	batch := s.pending
	s.pending = make([]string, 0, s.size)
	return s.exec.ExecBatch(ctx, batch)
}

// Pending returns the number of queued statements.
func (s *BatchSink) Pending() int {
	return len(s.pending)
}

var (
	_ Sink = (*DirectSink)(nil)
	_ Sink = (*BatchSink)(nil)
)
