package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flow/history"
)

var (
	historyWorkflow string
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, newest first",
	Long:  `Lists runs recorded by the history store. History must be enabled in the config or with --history sqlite.`,
	Args:  cobra.NoArgs,
	RunE:  listHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyWorkflow, "workflow", "", "Only show runs of this workflow")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show (0 = all)")
}

func listHistory(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(setup{})
	if err != nil {
		return err
	}
	defer eng.Close()

	store := eng.History()
	if store == nil {
		return errors.New("history is disabled; set history.driver in the config or pass --history")
	}

	entries, err := store.List(context.Background(), history.Filter{
		WorkflowID: historyWorkflow,
		Limit:      historyLimit,
	})
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tWORKFLOW\tSTATUS\tSTARTED\tDURATION\tSTEPS\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.RunID,
			e.WorkflowID,
			e.Status,
			e.Started.Format(time.DateTime),
			e.Duration,
			len(e.Steps),
			failure(e),
		)
	}
	return w.Flush()
}

func failure(e history.Entry) string {
	if e.Status != history.StatusFailed {
		return ""
	}
	if e.StepID != "" {
		return fmt.Sprintf("%s at %s", e.ErrorKind, e.StepID)
	}
	return e.ErrorKind
}
