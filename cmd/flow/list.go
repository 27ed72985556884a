package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workflows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(setup{})
		if err != nil {
			return err
		}
		defer eng.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTAGES\tDESCRIPTION")
		for _, id := range eng.Workflows() {
			wf, err := eng.Workflow(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", wf.ID(), len(wf.Stages()), wf.Description())
		}
		return w.Flush()
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <workflow-id>",
	Short: "Show the stages, steps and contracts of a workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(setup{})
		if err != nil {
			return err
		}
		defer eng.Close()

		wf, err := eng.Workflow(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", wf.ID())
		if wf.Description() != "" {
			fmt.Fprintf(out, "  %s\n", wf.Description())
		}
		fmt.Fprintf(out, "\ninput:  %s\noutput: %s\n\n", wf.Input(), wf.Output())

		for _, stage := range wf.Stages() {
			fmt.Fprintf(out, "stage %d (%s)\n", stage.Index, stage.Kind)
			for _, step := range stage.Steps {
				fmt.Fprintf(out, "  - %s", step.ID)
				if step.Description != "" {
					fmt.Fprintf(out, ": %s", step.Description)
				}
				if step.Timeout > 0 {
					fmt.Fprintf(out, " (timeout %s)", step.Timeout)
				}
				fmt.Fprintln(out)
			}
		}

		if warnings := wf.Warnings(); len(warnings) > 0 {
			fmt.Fprintf(out, "\nwarnings:\n  %s\n", strings.Join(warnings, "\n  "))
		}
		return nil
	},
}
