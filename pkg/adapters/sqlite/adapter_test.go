package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapdb/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabasePath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"", ":memory:"},
		{"jdbc:sqlite:", ":memory:"},
		{"jdbc:sqlite:/data/app.db", "/data/app.db"},
		{"sqlite:///data/app.db", "/data/app.db"},
		{"sqlite3:app.db", "app.db"},
		{"file:app.db?mode=ro", "file:app.db?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, databasePath(tt.url))
		})
	}
}

func TestPragmaStatements(t *testing.T) {
	got := pragmaStatements(map[string]string{"journal_mode": "WAL", "foreign_keys": "ON"})
	assert.Equal(t, []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"}, got)
}

func newConnected(t *testing.T, opts map[string]string) *Adapter {
	t.Helper()
	adp := New(nil)
	url := "jdbc:sqlite:" + filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Driver: "sqlite", URL: url, Options: opts}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	adp := newConnected(t, map[string]string{"foreign_keys": "ON"})
	assert.True(t, adp.IsConnected())

	var fk int
	require.NoError(t, adp.DB.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestAdapter_Connect_InvalidPragma(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), adapter.Config{
		URL:     ":memory:",
		Options: map[string]string{"journal_mode": "'unterminated"},
	})
	require.Error(t, err)
	assert.False(t, adp.IsConnected())
}

func TestStatement_Execute(t *testing.T) {
	ctx := context.Background()
	adp := newConnected(t, nil)

	stmt, err := adp.NewStatement(ctx)
	require.NoError(t, err)
	defer func() { _ = stmt.Close() }()

	res, err := stmt.Execute(ctx, "CREATE TABLE users (id INTEGER)")
	require.NoError(t, err)
	require.True(t, res.Next())
	assert.False(t, res.Result().ResultSet)
	assert.False(t, res.Next())
	require.NoError(t, res.Err())
	require.NoError(t, res.Close())

	res, err = stmt.Execute(ctx, "SELECT id FROM users")
	require.NoError(t, err)
	require.True(t, res.Next())
	assert.True(t, res.Result().ResultSet)
	require.NoError(t, res.Close())
}

func TestStatement_ExecuteBatch(t *testing.T) {
	ctx := context.Background()
	adp := newConnected(t, nil)

	stmt, err := adp.NewStatement(ctx)
	require.NoError(t, err)
	defer func() { _ = stmt.Close() }()

	counts, err := stmt.ExecuteBatch(ctx, []string{
		"CREATE TABLE users (id INTEGER)",
		"INSERT INTO users VALUES (1), (2)",
		"UPDATE users SET id = id + 10",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 2}, counts)

	counts, err = stmt.ExecuteBatch(ctx, []string{
		"INSERT INTO users VALUES (3)",
		"INSERT INTO missing VALUES (1)",
	})
	var batchErr *adapter.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, batchErr.Index)
	assert.Equal(t, []int64{1, adapter.ExecuteFailed}, counts)
}

func TestAdapter_Registry(t *testing.T) {
	for _, name := range []string{"sqlite", "org.sqlite.JDBC"} {
		adp, err := adapter.NewAdapter(adapter.Config{Driver: name}, nil)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", adp.DriverName())
	}
}
