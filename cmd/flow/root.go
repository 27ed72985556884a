package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flow/content"
	"github.com/tailored-agentic-units/flow/engine"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/middleware"
	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
)

var version = "dev"

var (
	configFile    string
	verbose       bool
	historyDriver string
	historyPath   string
)

var rootCmd = &cobra.Command{
	Use:          "flow",
	Short:        "Run step-orchestration workflows",
	Long:         `flow hosts committed workflows of typed steps and runs them with contract validation at every step boundary.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to flow config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&historyDriver, "history", "", "History store: memory or sqlite (overrides config)")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history-path", "", "SQLite history database path (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(historyCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "flow %s\n", version)
	},
}

// setup holds what a command needs beyond flags.
type setup struct {
	content    []content.Option
	rateLimit  middleware.RateLimitConfig
	collectAll bool
}

// newEngine loads configuration, applies flag overrides and returns an
// engine hosting the content workflows plus any configured definitions.
func newEngine(s setup) (*engine.Engine, error) {
	cfg := engine.DefaultConfig()
	if configFile != "" {
		loaded, err := engine.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if historyDriver != "" {
		cfg.History.Driver = historyDriver
	}
	if historyPath != "" {
		cfg.History.Path = historyPath
	}
	if s.collectAll {
		failFast := false
		cfg.Workflow.Parallel.FailFastNil = &failFast
		cfg.Workflow.Branch.FailFastNil = &failFast
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	steps := content.NewSteps(s.content...)
	catalog := engine.NewCatalog()
	if err := content.Register(catalog, steps); err != nil {
		return nil, err
	}

	eng, err := engine.New(&cfg, engine.WithCatalog(catalog), engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	opts := append(eng.WorkflowOptions(), workflows.WithMiddleware(
		middleware.Recover(),
		middleware.RateLimit(s.rateLimit),
		middleware.Logging(logger),
	))

	for _, wf := range []*workflows.Workflow{
		steps.ConditionalWorkflow(opts...),
		steps.ParallelWorkflow(opts...),
	} {
		if _, err := eng.Workflow(wf.ID()); err == nil {
			continue
		}
		if err := eng.Register(wf); err != nil {
			eng.Close()
			return nil, fmt.Errorf("failed to register %s: %w", wf.ID(), err)
		}
	}

	return eng, nil
}
