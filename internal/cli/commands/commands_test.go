package commands

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapdb/internal/cli/config"
	clitest "github.com/leapstack-labs/leapdb/internal/cli/testutil"
	"github.com/leapstack-labs/leapdb/internal/engine"
	"github.com/leapstack-labs/leapdb/internal/script"
	"github.com/leapstack-labs/leapdb/internal/state"
	"github.com/leapstack-labs/leapdb/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/leapdb/pkg/adapters/sqlite"
)

func loadConfig(t *testing.T, p *clitest.Project) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig(p.ConfigPath, nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

// runCommand executes cmd with cfg and a test logger in its context, the
// way the root command's pre-run leaves it.
func runCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	ctx := context.WithValue(context.Background(), config.ConfigKey(), cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), testutil.NewTestLogger(t))

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

func countRows(t *testing.T, path, query string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow(query).Scan(&n))
	return n
}

func TestNewOperationCommand(t *testing.T) {
	for _, op := range Operations() {
		t.Run(string(op), func(t *testing.T) {
			cmd := NewOperationCommand(op)
			assert.Equal(t, string(op), cmd.Use)
			assert.NotEmpty(t, cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, cmd.Long, "Long should not be empty")
			assert.Contains(t, cmd.Example, "leapdb "+string(op))
		})
	}
}

func TestOperationCommands_EndToEnd(t *testing.T) {
	p := clitest.SetupTestProject(t)
	cfg := loadConfig(t, p)

	steps := []struct {
		op      engine.Operation
		wantOut []string
	}{
		{engine.OpCreate, []string{"main: create ran 1 scripts, 1 statements"}},
		{engine.OpSchema, []string{"001_users.sql", "002_orders.sql", "main: schema ran 2 scripts, 2 statements"}},
		{engine.OpUpdate, []string{"001_email.sql", "main: update ran 1 scripts, 1 statements"}},
		{engine.OpData, []string{"main: data ran 1 scripts, 2 statements"}},
	}
	for _, step := range steps {
		out, err := runCommand(t, NewOperationCommand(step.op), cfg)
		require.NoError(t, err, "operation %s", step.op)
		for _, want := range step.wantOut {
			assert.Contains(t, out, want)
		}
		assert.NotContains(t, out, "~", "backup files are skipped")
		clitest.AssertNoANSI(t, out)
	}

	assert.Equal(t, 2, countRows(t, p.AppDB, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 1, countRows(t, p.AdminDB, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'created'"))

	_, err := runCommand(t, NewOperationCommand(engine.OpDrop), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, countRows(t, p.AdminDB, "SELECT COUNT(*) FROM sqlite_master WHERE name = 'created'"))
}

func TestOperationCommand_ExecutionError(t *testing.T) {
	p := clitest.SetupTestProject(t)
	bad := filepath.Join(p.Dir, "sql", "schema", "003_bad.sql")
	clitest.WriteFile(t, bad, "CREATE TABLE broken (;\n")
	cfg := loadConfig(t, p)

	out, err := runCommand(t, NewOperationCommand(engine.OpSchema), cfg)
	require.Error(t, err)

	var execErr *script.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "database main")
	assert.Contains(t, err.Error(), bad)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "main: schema ran 3 scripts")
}

func TestOperationCommand_NoConfig(t *testing.T) {
	cmd := NewOperationCommand(engine.OpSchema)
	cmd.SetArgs([]string{})
	err := cmd.ExecuteContext(context.Background())
	require.ErrorIs(t, err, errNoConfig)
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name        string
		credentials string
		wantOut     string
		wantErr     string
	}{
		{
			name:        "valid settings",
			credentials: "servers:\n  - id: app-db\n    username: app\n",
			wantOut:     "main: ok",
		},
		{
			name:        "unknown server id",
			credentials: "servers: []\n",
			wantErr:     "database main: [application] Server ID: app-db not found!",
		},
		{
			name:        "server without username",
			credentials: "servers:\n  - id: app-db\n    password: secret\n",
			wantErr:     "database main: [application] Server ID: app-db found, but username is empty!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := clitest.SetupTestProject(t)
			clitest.WriteFile(t, filepath.Join(p.Dir, "credentials.yaml"), tt.credentials)
			cfg := loadConfig(t, p)

			out, err := runCommand(t, NewValidateCommand(), cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestHistoryCommand(t *testing.T) {
	p := clitest.SetupTestProject(t)
	cfg := loadConfig(t, p)

	out, err := runCommand(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")

	_, err = runCommand(t, NewOperationCommand(engine.OpSchema), cfg)
	require.NoError(t, err)

	out, err = runCommand(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "schema")
	assert.Contains(t, out, string(state.RunStatusCompleted))
	clitest.AssertNoANSI(t, out)

	journal := state.NewSQLiteStore(nil)
	require.NoError(t, journal.Open(p.Journal))
	runs, err := journal.ListRuns(1)
	require.NoError(t, err)
	require.NoError(t, journal.Close())
	require.Len(t, runs, 1)

	out, err = runCommand(t, NewHistoryCommand(), cfg, "--run", runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "001_users.sql")
	assert.Contains(t, out, "002_orders.sql")
}

func TestHistoryCommand_JournalDisabled(t *testing.T) {
	p := clitest.SetupTestProject(t)
	cfg := loadConfig(t, p)
	cfg.JournalPath = ""

	_, err := runCommand(t, NewHistoryCommand(), cfg)
	require.ErrorIs(t, err, errJournalDisabled)

	// Operations still run without a journal.
	_, err = runCommand(t, NewOperationCommand(engine.OpSchema), cfg)
	require.NoError(t, err)
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history", cmd.Use)
	for _, flag := range []string{"limit", "run"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "20", cmd.Flags().Lookup("limit").DefValue)
}
