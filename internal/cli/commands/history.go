package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapdb/internal/state"
	"github.com/spf13/cobra"
)

var errJournalDisabled = errors.New("journal is disabled (journal_path is empty)")

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs from the execution journal",
		Long: `Show the runs recorded in the execution journal, newest first.

With --run, list the scripts executed by one run.`,
		Example: `  # Show the last 20 runs
  leapdb history

  # Show the scripts of one run
  leapdb history --run 3f2a...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if cmdCtx.Journal == nil {
				return errJournalDisabled
			}
			if runID != "" {
				scripts, err := cmdCtx.Journal.ListScripts(runID)
				if err != nil {
					return err
				}
				renderScripts(cmd.OutOrStdout(), scripts)
				return nil
			}

			runs, err := cmdCtx.Journal.ListRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the scripts of this run")

	return cmd
}

func renderRuns(w io.Writer, runs []*state.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Database", "Operation", "Status", "Started", "Duration", "Scripts", "Error"})
	for _, r := range runs {
		duration := ""
		if r.CompletedAt != nil {
			duration = r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{r.ID, r.Database, r.Operation, r.Status, r.StartedAt.Format(time.DateTime), duration, r.Scripts, r.Error})
	}
	t.Render()
}

func renderScripts(w io.Writer, scripts []*state.ScriptRun) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Script", "Statements", "Elapsed", "Error"})
	for _, s := range scripts {
		t.AppendRow(table.Row{s.Path, s.Statements, s.Elapsed.Round(time.Millisecond).String(), s.Error})
	}
	t.Render()
}
