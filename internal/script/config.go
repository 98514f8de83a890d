package script

import (
	"errors"
	"log/slog"
	"os"
	"strings"
)

// Defaults applied by the configuration layer.
const (
	DefaultSQLDelimiter         = ";"
	DefaultTransactionDelimiter = "GO"
	DefaultBatchSize            = 20
	DefaultMaxResults           = 1000
)

// Config controls how scripts are split and executed.
type Config struct {
	// SQLDelimiter ends a statement when a line completes it.
	SQLDelimiter string

	// TransactionDelimiter marks a transaction boundary when it is alone on a line.
	TransactionDelimiter string

	// Encoding of scripts without a byte order mark. Empty means the
	// platform default, resolved on first use.
	Encoding string

	// BatchSize bounds the number of statements submitted in one batch.
	BatchSize int

	// UseBatch selects batch submission instead of direct execution.
	UseBatch bool

	// MaxResults bounds the chained results drained for one statement.
	MaxResults int
}

// Validate checks the delimiter and size settings.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SQLDelimiter) == "" {
		errs = append(errs, errors.New("sql delimiter must not be empty"))
	}
	if strings.TrimSpace(c.TransactionDelimiter) == "" {
		errs = append(errs, errors.New("transaction delimiter must not be empty"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be greater than zero"))
	}
	if c.MaxResults <= 0 {
		errs = append(errs, errors.New("max results must be greater than zero"))
	}
	return errors.Join(errs...)
}

// resolveEncoding returns the configured encoding, filling in the platform
// default the first time it is missing.
func (c *Config) resolveEncoding(logger *slog.Logger) string {
	if c.Encoding == "" {
		c.Encoding = platformEncoding()
		logger.Warn("using platform encoding, i.e. build is platform dependent",
			slog.String("encoding", c.Encoding))
	}
	return c.Encoding
}

// platformEncoding derives the charset from the POSIX locale variables.
func platformEncoding() string {
	for _, name := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if i := strings.IndexByte(v, '@'); i >= 0 {
			v = v[:i]
		}
		if i := strings.IndexByte(v, '.'); i >= 0 && i < len(v)-1 {
			return v[i+1:]
		}
		return "UTF-8"
	}
	return "UTF-8"
}
