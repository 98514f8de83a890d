package script

import (
	"errors"
	"fmt"
)

// ErrTooManyResults is returned when a statement keeps producing results
// beyond Config.MaxResults.
var ErrTooManyResults = errors.New("too many results")

// ErrBatchItemFailed is the cause reported when a driver flags a batch item
// as failed without returning an error.
var ErrBatchItemFailed = errors.New("batch item failed")

// NotAFileError is returned when a script path is missing or not a regular file.
type NotAFileError struct {
	Path string
	Err  error
}

func (e *NotAFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not a file: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("not a file: %s", e.Path)
}

func (e *NotAFileError) Unwrap() error { return e.Err }

// NotADirectoryError is returned when a script directory is missing or not a directory.
type NotADirectoryError struct {
	Path string
	Err  error
}

func (e *NotADirectoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not a directory: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("not a directory: %s", e.Path)
}

func (e *NotADirectoryError) Unwrap() error { return e.Err }

// ExecutionError carries the SQL text that failed together with the
// driver error.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%v\n\nSQL:\n%s", e.Err, e.SQL)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// SQLState returns the SQLSTATE of the cause, if the driver reported one.
func (e *ExecutionError) SQLState() string {
	var s interface{ SQLState() string }
	if errors.As(e.Err, &s) {
		return s.SQLState()
	}
	return ""
}

// Code returns the vendor error code of the cause, or 0.
func (e *ExecutionError) Code() int {
	var c interface{ Code() int }
	if errors.As(e.Err, &c) {
		return c.Code()
	}
	return 0
}
