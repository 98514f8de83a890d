package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the connection settings of the selected databases",
		Long: `Check the admin and application settings of every selected database
without connecting: server ids must exist in the credential store with a
username, otherwise an inline username is required, and every connection
needs a url and a driver.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Engine.Validate(); err != nil {
				return err
			}

			dbs, err := cmdCtx.Cfg.SelectDatabases()
			if err != nil {
				return err
			}
			for _, db := range dbs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", db.Name)
			}
			return nil
		},
	}
}
