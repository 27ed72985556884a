package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flow/content"
	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

var (
	runInput      string
	runContent    string
	runType       string
	runLatency    bool
	runSeed       uint64
	runFaults     []string
	runCollectAll bool
	runRate       float64
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-id>",
	Short: "Run a workflow once and print its result as JSON",
	Example: `  flow run conditional-content-workflow --content "A great day."
  flow run parallel-analysis-workflow --input '{"content": "Some text", "type": "blog"}'
  flow run parallel-analysis-workflow --content "Some text" --fail sentiment-analysis --collect-all`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "Workflow input as a JSON object")
	runCmd.Flags().StringVar(&runContent, "content", "", "Content text (shorthand for --input)")
	runCmd.Flags().StringVar(&runType, "type", "", "Content type: article, blog or social")
	runCmd.Flags().BoolVar(&runLatency, "latency", false, "Enable simulated step latency")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "Seed for randomized scores (0 = random)")
	runCmd.Flags().StringSliceVar(&runFaults, "fail", nil, "Step ids that fail instead of executing")
	runCmd.Flags().BoolVar(&runCollectAll, "collect-all", false, "Run every concurrent step to completion and aggregate failures")
	runCmd.Flags().Float64Var(&runRate, "rate", 0, "Maximum step executions per second (0 = unlimited)")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	input, err := parseInput()
	if err != nil {
		return err
	}

	opts := []content.Option{content.WithLatency(runLatency)}
	if runSeed != 0 {
		opts = append(opts, content.WithSeed(runSeed))
	}
	for _, id := range runFaults {
		opts = append(opts, content.WithFault(id, fmt.Errorf("injected fault in %s", id)))
	}

	s := setup{content: opts, collectAll: runCollectAll}
	s.rateLimit.Limit = runRate

	eng, err := newEngine(s)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := eng.Run(ctx, args[0], input)
	if err != nil {
		var stageErr *workflows.StageError
		if errors.As(err, &stageErr) {
			return fmt.Errorf("run %s failed (%s): %w", stageErr.RunID, stageErr.Failure(), err)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"run_id":      result.RunID,
		"workflow_id": result.WorkflowID,
		"duration":    result.Duration.String(),
		"output":      result.Output,
	})
}

func parseInput() (map[string]any, error) {
	input := make(map[string]any)
	if runInput != "" {
		if err := json.Unmarshal([]byte(runInput), &input); err != nil {
			return nil, fmt.Errorf("invalid --input: %w", err)
		}
	}
	if runContent != "" {
		input["content"] = runContent
	}
	if runType != "" {
		input["type"] = runType
	}
	return input, nil
}
