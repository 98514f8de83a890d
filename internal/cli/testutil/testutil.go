// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// Project is a temporary leapdb project backed by sqlite files.
type Project struct {
	Dir        string
	ConfigPath string
	AdminDB    string
	AppDB      string
	Journal    string
}

const projectConfig = `batch_size: 20
use_batch: true
credentials_file: credentials.yaml
journal_path: .leapdb/journal.db
log_format: text
databases:
  - name: main
    create_script: sql/create.sql
    drop_script: sql/drop.sql
    schema_dirs: [sql/schema]
    update_dirs: [sql/updates]
    data_dirs: [sql/data]
    admin:
      url: sqlite://{{admin}}
      driver: sqlite
      username: admin
    app:
      url: jdbc:sqlite:{{app}}
      driver: org.sqlite.JDBC
      server_id: app-db
`

const projectCredentials = `servers:
  - id: app-db
    username: app
    password: secret
`

// SetupTestProject creates a temporary project with one database "main",
// its credential store and create, drop, schema and data scripts.
func SetupTestProject(t *testing.T) *Project {
	t.Helper()

	tmpDir := t.TempDir()
	p := &Project{
		Dir:        tmpDir,
		ConfigPath: filepath.Join(tmpDir, "leapdb.yaml"),
		AdminDB:    filepath.Join(tmpDir, "admin.db"),
		AppDB:      filepath.Join(tmpDir, "app.db"),
		Journal:    filepath.Join(tmpDir, ".leapdb", "journal.db"),
	}

	cfg := strings.NewReplacer("{{admin}}", p.AdminDB, "{{app}}", p.AppDB).Replace(projectConfig)

	files := map[string]string{
		"leapdb.yaml":               cfg,
		"credentials.yaml":          projectCredentials,
		"sql/create.sql":            "CREATE TABLE created (id INTEGER);\n",
		"sql/drop.sql":              "DROP TABLE created;\n",
		"sql/schema/001_users.sql":  "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);\nGO\n",
		"sql/schema/002_orders.sql": "CREATE TABLE orders (id INTEGER, user_id INTEGER);\n",
		"sql/updates/001_email.sql": "ALTER TABLE users ADD COLUMN email TEXT;\n",
		"sql/data/001_users.sql":    "INSERT INTO users (name) VALUES ('ada');\nINSERT INTO users (name) VALUES ('linus');\n",
		"sql/data/002_users.sql~":   "this never runs;\n",
	}
	for name, content := range files {
		WriteFile(t, filepath.Join(tmpDir, name), content)
	}

	return p
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
