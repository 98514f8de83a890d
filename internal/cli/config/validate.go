package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdb/internal/credentials"
)

// Connection sections as named in validation messages.
const (
	SectionAdmin       = "admin"
	SectionApplication = "application"
)

// ValidationError reports an invalid connection section.
type ValidationError struct {
	Section string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Section, e.Message)
}

// ValidateConnection checks one connection section against the credential store.
func ValidateConnection(section string, c ConnectionConfig, store *credentials.Store) error {
	if _, err := credentials.Resolve(c.Ref(), store); err != nil {
		msg := "No username defined!"
		switch {
		case errors.Is(err, credentials.ErrServerNotFound):
			msg = fmt.Sprintf("Server ID: %s not found!", c.ServerID)
		case errors.Is(err, credentials.ErrEmptyUsername):
			msg = fmt.Sprintf("Server ID: %s found, but username is empty!", c.ServerID)
		}
		return &ValidationError{Section: section, Message: msg}
	}

	if c.URL == "" {
		return &ValidationError{Section: section, Message: "No jdbc url defined!"}
	}
	if c.Driver == "" {
		return &ValidationError{Section: section, Message: "No jdbc driver defined!"}
	}
	return nil
}

// Validate checks the admin then the application connection of d.
func (d *DatabaseConfig) Validate(store *credentials.Store) error {
	if err := ValidateConnection(SectionAdmin, d.Admin, store); err != nil {
		return err
	}
	return ValidateConnection(SectionApplication, d.App, store)
}

// Validate checks the global settings and database names.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be greater than zero, got %d", c.BatchSize)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be greater than zero, got %d", c.MaxResults)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q (expected auto, text or json)", c.LogFormat)
	}

	seen := make(map[string]bool, len(c.Databases))
	for i, db := range c.Databases {
		if db.Name == "" {
			return fmt.Errorf("databases[%d]: name is required", i)
		}
		if seen[db.Name] {
			return fmt.Errorf("duplicate database name %q", db.Name)
		}
		seen[db.Name] = true
	}
	return nil
}

// SelectDatabases returns the databases to run, in configured order.
// An empty run_configs selects all of them.
func (c *Config) SelectDatabases() ([]*DatabaseConfig, error) {
	if len(c.Databases) == 0 {
		return nil, errors.New("no databases configured\nHint: add a databases section to leapdb.yaml or run 'leapdb init'")
	}

	wanted := make(map[string]bool, len(c.RunConfigs))
	for _, name := range c.RunConfigs {
		wanted[name] = true
	}

	var selected []*DatabaseConfig
	for i := range c.Databases {
		db := &c.Databases[i]
		if len(wanted) == 0 || wanted[db.Name] {
			selected = append(selected, db)
			delete(wanted, db.Name)
		}
	}
	for _, name := range c.RunConfigs {
		if wanted[name] {
			return nil, fmt.Errorf("unknown database %q in run_configs", name)
		}
	}
	return selected, nil
}
