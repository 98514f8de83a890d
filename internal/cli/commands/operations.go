package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/leapdb/internal/engine"
	"github.com/spf13/cobra"
)

type operationHelp struct {
	short string
	long  string
}

var operationDocs = map[engine.Operation]operationHelp{
	engine.OpCreate: {
		short: "Create databases by running their create script",
		long: `Run the create script of every selected database over its admin connection.

The create script usually creates the database itself, its users and roles.`,
	},
	engine.OpDrop: {
		short: "Drop databases by running their drop script",
		long:  `Run the drop script of every selected database over its admin connection.`,
	},
	engine.OpSchema: {
		short: "Run the schema scripts",
		long: `Run every script of the schema directories over the application connection.

Scripts run in lexicographic order of their path. Files ending in "~" are skipped.`,
	},
	engine.OpUpdate: {
		short: "Run the update scripts",
		long: `Run every script of the update directories over the application connection.

Scripts run in lexicographic order of their path. Files ending in "~" are skipped.`,
	},
	engine.OpData: {
		short: "Run the data scripts",
		long: `Run every script of the data directories over the application connection.

Scripts run in lexicographic order of their path. Files ending in "~" are skipped.`,
	},
}

// Operations returns the database operations in the order they are usually run.
func Operations() []engine.Operation {
	return []engine.Operation{engine.OpCreate, engine.OpDrop, engine.OpSchema, engine.OpUpdate, engine.OpData}
}

// NewOperationCommand creates the command running op against the selected databases.
func NewOperationCommand(op engine.Operation) *cobra.Command {
	help := operationDocs[op]
	return &cobra.Command{
		Use:   string(op),
		Short: help.short,
		Long:  help.long,
		Example: fmt.Sprintf(`  # Run against every configured database
  leapdb %[1]s

  # Run against selected databases only
  leapdb %[1]s --databases main,reporting`, op),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOperation(cmd, op)
		},
	}
}

func runOperation(cmd *cobra.Command, op engine.Operation) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := cmdCtx.Engine.Run(cmd.Context(), op)
	printResults(cmd.OutOrStdout(), results)
	return err
}

func printResults(w io.Writer, results []engine.Result) {
	st := newStyles(w)
	for _, res := range results {
		for _, f := range res.Files {
			status := st.ok.Render(fmt.Sprintf("%-6s", "ok"))
			if f.Err != nil {
				status = st.failed.Render(fmt.Sprintf("%-6s", "FAILED"))
			}
			detail := st.dim.Render(fmt.Sprintf("(%d statements, %s)", f.Statements, f.Elapsed.Round(time.Millisecond)))
			_, _ = fmt.Fprintf(w, "  %s %s %s\n", status, filepath.ToSlash(f.Path), detail)
		}
		summary := fmt.Sprintf("%s: %s ran %d scripts, %d statements", res.Database, res.Operation, len(res.Files), res.Statements())
		_, _ = fmt.Fprintln(w, st.bold.Render(summary))
	}
}
