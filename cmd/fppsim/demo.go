package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/akshitanchan/fpp-arrivals/internal/report"
	"github.com/akshitanchan/fpp-arrivals/internal/scenario"
)

type demoOptions struct {
	*rootOptions
	Seed       int64
	RandomSeed bool
}

func newDemoCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &demoOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run all scenarios and write a cross-scenario report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (default: $FPPSIM_DEFAULT_SEED)")
	cmd.Flags().BoolVar(&opts.RandomSeed, "random-seed", false, "draw a fresh seed")

	return cmd
}

func runDemo(opts *demoOptions, cmd *cobra.Command) error {
	out := opts.output(cmd)

	seed, err := opts.seed(cmd, opts.Seed, opts.RandomSeed)
	if err != nil {
		return err
	}

	var results []report.ScenarioResult
	for _, name := range scenario.Names {
		cfg := scenario.GetConfig(name, seed)
		out.Printf("Running scenario: %s (seed=%d)...\n", name, seed)

		result, m, err := executeRun(opts.rootOptions, cfg)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out.Printf("  %s: %s events, %d rounds, %v\n",
			name, humanize.Comma(int64(result.EventCount)), result.Rounds, result.Duration)

		results = append(results, report.ScenarioResult{
			Config:  cfg,
			Metrics: m,
			RunDir:  result.OutputDir,
		})
	}

	crossReport := report.NewCrossReport(results, opts.Env.RunsDir)
	if err := crossReport.Generate(); err != nil {
		slog.Warn("cross-scenario report failed", "error", err)
	}

	return out.Success(results, func(w io.Writer) {
		report.PrintCrossSummary(w, results)
		fmt.Fprintf(w, "\nCross-scenario report: %s\n", filepath.Join(opts.Env.RunsDir, "cross-scenario-report.md"))
	})
}
