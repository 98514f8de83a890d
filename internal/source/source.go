// Package source lists and opens script files on the local filesystem and
// in S3 buckets.
package source

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Entry describes one file or directory.
type Entry struct {
	// Name is the base name, without any directory part.
	Name string

	// Path can be passed back to Stat, List or Open.
	Path string

	IsDir bool

	// Regular is true for plain files.
	Regular bool

	Size int64
}

// Source gives read access to script files.
type Source interface {
	// Stat describes path. A missing path returns an error matching fs.ErrNotExist.
	Stat(ctx context.Context, path string) (Entry, error)

	// List returns the direct children of dir in no particular order.
	List(ctx context.Context, dir string) ([]Entry, error)

	// Open opens the file at path for reading.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// S3Scheme prefixes paths served from S3.
const S3Scheme = "s3://"

// ErrS3NotConfigured is returned when an s3:// path is used without an S3 source.
var ErrS3NotConfigured = errors.New("s3 source not configured")

// IsS3 reports whether path addresses an S3 object or prefix.
func IsS3(path string) bool {
	return strings.HasPrefix(strings.ToLower(path), S3Scheme)
}

// Mux routes s3:// paths to an S3 source and every other path to a local one.
type Mux struct {
	Local Source
	S3    Source
}

// NewMux creates a Mux. s3 may be nil when no S3 paths are used.
func NewMux(local, s3 Source) *Mux {
	return &Mux{Local: local, S3: s3}
}

func (m *Mux) route(path string) (Source, error) {
	if IsS3(path) {
		if m.S3 == nil {
			return nil, ErrS3NotConfigured
		}
		return m.S3, nil
	}
	return m.Local, nil
}

// Stat implements Source.
func (m *Mux) Stat(ctx context.Context, path string) (Entry, error) {
	src, err := m.route(path)
	if err != nil {
		return Entry{}, err
	}
	return src.Stat(ctx, path)
}

// List implements Source.
func (m *Mux) List(ctx context.Context, dir string) ([]Entry, error) {
	src, err := m.route(dir)
	if err != nil {
		return nil, err
	}
	return src.List(ctx, dir)
}

// Open implements Source.
func (m *Mux) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	src, err := m.route(path)
	if err != nil {
		return nil, err
	}
	return src.Open(ctx, path)
}

var _ Source = (*Mux)(nil)
