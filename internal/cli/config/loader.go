package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapdb/internal/credentials"
	"github.com/leapstack-labs/leapdb/internal/script"
	"github.com/leapstack-labs/leapdb/internal/source"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// envPrefix prefixes every environment variable read by the loader.
const envPrefix = "LEAPDB_"

// flagKeys maps flags whose names differ from their config keys.
var flagKeys = map[string]string{
	"databases":   "run_configs",
	"journal":     "journal_path",
	"credentials": "credentials_file",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range []string{"leapdb.yaml", "leapdb.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFile finds the config file to use.
// Priority: explicit path > leapdb.yaml/leapdb.yml in the working directory
// or one of its parents.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, already absolute or an S3 path.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || source.IsS3(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"batch_size":       script.DefaultBatchSize,
		"use_batch":        true,
		"max_results":      script.DefaultMaxResults,
		"credentials_file": DefaultCredentialsFile,
		"journal_path":     DefaultJournalFile,
		"log_level":        DefaultLogLevel,
		"log_format":       DefaultLogFormat,
		"verbose":          false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFile := findConfigFile(cfgFile)
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	// 3. Load environment variables (LEAPDB_ prefix)
	// Transform: LEAPDB_BATCH_SIZE -> batch_size, LEAPDB_S3_REGION -> s3.region
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			// Paths given on the command line are relative to the working directory
			if key == "journal_path" || key == "credentials_file" {
				if abs, err := filepath.Abs(f.Value.String()); err == nil && f.Value.String() != "" {
					return key, abs
				}
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Anchor relative paths at the config file's directory
	cfg.ConfigFile = configFile
	cfg.ConfigDir = configDir(configFile)
	cfg.applyDefaults()

	return &cfg, nil
}

// envKey turns an environment variable name into a config key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if rest, ok := strings.CutPrefix(key, "s3_"); ok {
		return "s3." + rest
	}
	return key
}

// configDir returns the directory relative paths are resolved against.
func configDir(configFile string) string {
	if configFile != "" {
		if abs, err := filepath.Abs(configFile); err == nil {
			return filepath.Dir(abs)
		}
		return filepath.Dir(configFile)
	}
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// applyDefaults fills per-database defaults, expands environment variables
// in connection settings and resolves relative paths.
func (c *Config) applyDefaults() {
	c.RunConfigs = compact(c.RunConfigs)
	c.JournalPath = resolvePathRelativeTo(c.JournalPath, c.ConfigDir)
	if c.CredentialsFile != "" {
		c.CredentialsFile = resolvePathRelativeTo(credentials.ExpandHome(c.CredentialsFile), c.ConfigDir)
	}

	for i := range c.Databases {
		db := &c.Databases[i]
		if strings.TrimSpace(db.SQLDelimiter) == "" {
			db.SQLDelimiter = script.DefaultSQLDelimiter
		}
		if strings.TrimSpace(db.TransactionDelimiter) == "" {
			db.TransactionDelimiter = script.DefaultTransactionDelimiter
		}
		expandConnectionEnvVars(&db.Admin)
		expandConnectionEnvVars(&db.App)
		for _, p := range db.paths() {
			*p = resolvePathRelativeTo(*p, c.ConfigDir)
		}
	}
}

// compact trims entries and drops empty ones.
func compact(items []string) []string {
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// GetConfig retrieves the loaded config from the command context.
// It returns nil when no config was loaded.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandConnectionEnvVars expands environment variables in sensitive connection fields.
func expandConnectionEnvVars(c *ConnectionConfig) {
	c.URL = expandEnvVars(c.URL)
	c.Username = expandEnvVars(c.Username)
	c.Password = expandEnvVars(c.Password)
}
