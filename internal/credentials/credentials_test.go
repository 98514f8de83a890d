package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStore(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeStore(t, `servers:
  - id: app-db
    username: app
    password: secret
  - id: no-user
    password: x
`)

	store, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	srv, ok := store.Lookup("app-db")
	require.True(t, ok)
	assert.Equal(t, Server{ID: "app-db", Username: "app", Password: "secret"}, srv)

	_, ok = store.Lookup("other")
	assert.False(t, ok)
}

func TestLoad_Missing(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	store, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestLoad_Invalid(t *testing.T) {
	path := writeStore(t, "servers: [unterminated\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading credentials file")
}

func TestResolve(t *testing.T) {
	store := NewStore(
		Server{ID: "app-db", Username: "app", Password: "secret"},
		Server{ID: "blank", Password: "x"},
	)

	tests := []struct {
		name    string
		ref     Ref
		want    Credentials
		wantErr error
	}{
		{
			name: "server id",
			ref:  Ref{ServerID: "app-db", Username: "ignored"},
			want: Credentials{Username: "app", Password: "secret"},
		},
		{
			name:    "unknown server id",
			ref:     Ref{ServerID: "nope"},
			wantErr: ErrServerNotFound,
		},
		{
			name:    "server without username",
			ref:     Ref{ServerID: "blank"},
			wantErr: ErrEmptyUsername,
		},
		{
			name: "inline",
			ref:  Ref{Username: "admin", Password: "pw"},
			want: Credentials{Username: "admin", Password: "pw"},
		},
		{
			name:    "nothing",
			ref:     Ref{Password: "pw"},
			wantErr: ErrNoUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.ref, store)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_NilStore(t *testing.T) {
	_, err := Resolve(Ref{ServerID: "app-db"}, nil)
	require.ErrorIs(t, err, ErrServerNotFound)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".leapdb", "credentials.yaml"), ExpandHome("~/.leapdb/credentials.yaml"))
	assert.Equal(t, "/etc/leapdb.yaml", ExpandHome("/etc/leapdb.yaml"))
	assert.Equal(t, "relative/~/x", ExpandHome("relative/~/x"))
}
