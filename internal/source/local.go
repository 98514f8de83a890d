package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Local serves files from the operating system's filesystem.
// Symbolic links are followed.
type Local struct{}

// NewLocal returns a local filesystem source.
func NewLocal() *Local {
	return &Local{}
}

// Stat implements Source.
func (l *Local) Stat(_ context.Context, path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, err
	}
	return localEntry(path, info), nil
}

// List implements Source.
func (l *Local) List(_ context.Context, dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		path := filepath.Join(dir, de.Name())
		info, err := os.Stat(path)
		if err != nil {
			// Broken symlinks are listed but are neither files nor directories.
			entries = append(entries, Entry{Name: de.Name(), Path: path})
			continue
		}
		entries = append(entries, localEntry(path, info))
	}
	return entries, nil
}

// Open implements Source.
func (l *Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path) //nolint:gosec // script paths come from the project configuration
}

func localEntry(path string, info os.FileInfo) Entry {
	return Entry{
		Name:    info.Name(),
		Path:    path,
		IsDir:   info.IsDir(),
		Regular: info.Mode().IsRegular(),
		Size:    info.Size(),
	}
}

var _ Source = (*Local)(nil)
