// Package config provides configuration management for the leapdb CLI.
//
// Configuration is read from leapdb.yaml, LEAPDB_ environment variables and
// command-line flags. Each entry of databases describes one target: its
// admin and application connections and the scripts to run against them.
package config

import (
	"github.com/leapstack-labs/leapdb/internal/credentials"
	"github.com/leapstack-labs/leapdb/internal/script"
	"github.com/leapstack-labs/leapdb/internal/source"
	"github.com/leapstack-labs/leapdb/pkg/adapter"
)

// Config holds all CLI configuration options.
type Config struct {
	BatchSize       int              `koanf:"batch_size"`
	UseBatch        bool             `koanf:"use_batch"`
	MaxResults      int              `koanf:"max_results"`
	RunConfigs      []string         `koanf:"run_configs"`
	CredentialsFile string           `koanf:"credentials_file"`
	JournalPath     string           `koanf:"journal_path"`
	LogLevel        string           `koanf:"log_level"`
	LogFormat       string           `koanf:"log_format"`
	Verbose         bool             `koanf:"verbose"`
	S3              S3Config         `koanf:"s3"`
	Databases       []DatabaseConfig `koanf:"databases"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
	// ConfigDir anchors relative paths: the config file's directory or the
	// working directory.
	ConfigDir string `koanf:"-"`
}

// S3Config configures the S3 script source.
type S3Config struct {
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

// DatabaseConfig describes one named target.
type DatabaseConfig struct {
	Name                 string           `koanf:"name"`
	ScriptEncoding       string           `koanf:"script_encoding"`
	SQLDelimiter         string           `koanf:"sql_delimiter"`
	TransactionDelimiter string           `koanf:"transaction_delimiter"`
	CreateScript         string           `koanf:"create_script"`
	DropScript           string           `koanf:"drop_script"`
	SchemaDirs           []string         `koanf:"schema_dirs"`
	UpdateDirs           []string         `koanf:"update_dirs"`
	DataDirs             []string         `koanf:"data_dirs"`
	Admin                ConnectionConfig `koanf:"admin"`
	App                  ConnectionConfig `koanf:"app"`
}

// ConnectionConfig holds the settings of one connection.
type ConnectionConfig struct {
	URL      string            `koanf:"url"`
	Driver   string            `koanf:"driver"`
	ServerID string            `koanf:"server_id"`
	Username string            `koanf:"username"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
}

// Default configuration values.
const (
	DefaultConfigFile      = "leapdb.yaml"
	DefaultCredentialsFile = "~/.leapdb/credentials.yaml"
	DefaultJournalFile     = ".leapdb/journal.db"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "auto" // Auto-detect: TTY=text, non-TTY=json
)

// Ref returns the credential reference of the connection.
func (c ConnectionConfig) Ref() credentials.Ref {
	return credentials.Ref{ServerID: c.ServerID, Username: c.Username, Password: c.Password}
}

// AdapterConfig builds driver settings with resolved credentials.
func (c ConnectionConfig) AdapterConfig(creds credentials.Credentials) adapter.Config {
	return adapter.Config{
		Driver:   c.Driver,
		URL:      c.URL,
		Username: creds.Username,
		Password: creds.Password,
		Options:  c.Options,
	}
}

// ScriptConfig returns the splitting and execution settings for db.
func (c *Config) ScriptConfig(db *DatabaseConfig) *script.Config {
	return &script.Config{
		SQLDelimiter:         db.SQLDelimiter,
		TransactionDelimiter: db.TransactionDelimiter,
		Encoding:             db.ScriptEncoding,
		BatchSize:            c.BatchSize,
		UseBatch:             c.UseBatch,
		MaxResults:           c.MaxResults,
	}
}

// SourceS3Config converts the S3 settings for the script source.
func (c *Config) SourceS3Config() source.S3Config {
	return source.S3Config{
		Region:    c.S3.Region,
		Endpoint:  c.S3.Endpoint,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
	}
}

// UsesS3 reports whether any configured script path lives in S3.
func (c *Config) UsesS3() bool {
	for i := range c.Databases {
		for _, p := range c.Databases[i].paths() {
			if source.IsS3(*p) {
				return true
			}
		}
	}
	return false
}

// paths returns pointers to every script path of db.
func (d *DatabaseConfig) paths() []*string {
	ps := []*string{&d.CreateScript, &d.DropScript}
	for _, dirs := range [][]string{d.SchemaDirs, d.UpdateDirs, d.DataDirs} {
		for i := range dirs {
			ps = append(ps, &dirs[i])
		}
	}
	return ps
}
