package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapdb/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Scaffold layout written by init. Field order is the order in the file.

type scaffoldConfig struct {
	BatchSize       int                `yaml:"batch_size"`
	UseBatch        bool               `yaml:"use_batch"`
	MaxResults      int                `yaml:"max_results"`
	CredentialsFile string             `yaml:"credentials_file"`
	JournalPath     string             `yaml:"journal_path"`
	LogLevel        string             `yaml:"log_level"`
	LogFormat       string             `yaml:"log_format"`
	Databases       []scaffoldDatabase `yaml:"databases"`
}

type scaffoldDatabase struct {
	Name                 string             `yaml:"name"`
	ScriptEncoding       string             `yaml:"script_encoding"`
	SQLDelimiter         string             `yaml:"sql_delimiter"`
	TransactionDelimiter string             `yaml:"transaction_delimiter"`
	CreateScript         string             `yaml:"create_script"`
	DropScript           string             `yaml:"drop_script"`
	SchemaDirs           []string           `yaml:"schema_dirs"`
	UpdateDirs           []string           `yaml:"update_dirs"`
	DataDirs             []string           `yaml:"data_dirs"`
	Admin                scaffoldConnection `yaml:"admin"`
	App                  scaffoldConnection `yaml:"app"`
}

type scaffoldConnection struct {
	URL      string `yaml:"url"`
	Driver   string `yaml:"driver"`
	ServerID string `yaml:"server_id,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

func defaultScaffold(name string) scaffoldConfig {
	return scaffoldConfig{
		BatchSize:       20,
		UseBatch:        true,
		MaxResults:      1000,
		CredentialsFile: config.DefaultCredentialsFile,
		JournalPath:     config.DefaultJournalFile,
		LogLevel:        config.DefaultLogLevel,
		LogFormat:       config.DefaultLogFormat,
		Databases: []scaffoldDatabase{{
			Name:                 name,
			ScriptEncoding:       "UTF-8",
			SQLDelimiter:         ";",
			TransactionDelimiter: "GO",
			CreateScript:         "sql/create.sql",
			DropScript:           "sql/drop.sql",
			SchemaDirs:           []string{"sql/schema"},
			UpdateDirs:           []string{"sql/updates"},
			DataDirs:             []string{"sql/data"},
			Admin: scaffoldConnection{
				URL:      "postgres://localhost:5432/postgres",
				Driver:   "pgx",
				Username: "${PGUSER}",
				Password: "${PGPASSWORD}",
			},
			App: scaffoldConnection{
				URL:      "postgres://localhost:5432/" + name,
				Driver:   "pgx",
				ServerID: name + "-app",
			},
		}},
	}
}

var scaffoldScripts = map[string]string{
	"sql/create.sql": "-- Runs over the admin connection.\n-- CREATE DATABASE app;\n",
	"sql/drop.sql":   "-- Runs over the admin connection.\n-- DROP DATABASE app;\n",
}

var scaffoldDirs = []string{"sql/schema", "sql/updates", "sql/data"}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapdb project",
		Long: `Initialize a new leapdb project with default directory structure and configuration.

This creates:
  - leapdb.yaml configuration file
  - sql/create.sql and sql/drop.sql
  - sql/schema/, sql/updates/ and sql/data/ script directories`,
		Example: `  # Initialize in current directory
  leapdb init

  # Initialize in a new directory with a database named "shop"
  leapdb init my-project --name shop

  # Force overwrite existing config
  leapdb init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			created, err := runInit(dir, name, force)
			for _, f := range created {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  created %s\n", f)
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nleapdb project initialized!")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  1. Edit the connections in leapdb.yaml")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  2. Add server credentials to "+config.DefaultCredentialsFile)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "  3. Run 'leapdb validate', then 'leapdb create' and 'leapdb schema'")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&name, "name", "app", "Name of the scaffolded database")

	return cmd
}

// runInit writes the scaffold into dir and returns the created paths.
// Existing scripts are never overwritten.
func runInit(dir, name string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return nil, fmt.Errorf("%s already exists. Use --force to overwrite", config.DefaultConfigFile)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(defaultScaffold(name)); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", config.DefaultConfigFile, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(configPath, buf.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	created := []string{config.DefaultConfigFile}

	for _, d := range scaffoldDirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o750); err != nil {
			return created, fmt.Errorf("failed to create directory %s: %w", d, err)
		}
		created = append(created, d+"/")
	}

	for _, f := range []string{"sql/create.sql", "sql/drop.sql"} {
		path := filepath.Join(dir, f)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(scaffoldScripts[f]), 0o600); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", f, err)
		}
		created = append(created, f)
	}

	return created, nil
}
