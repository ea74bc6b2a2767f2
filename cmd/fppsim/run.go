package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/akshitanchan/fpp-arrivals/internal/metrics"
	"github.com/akshitanchan/fpp-arrivals/internal/report"
	"github.com/akshitanchan/fpp-arrivals/internal/scenario"
	"github.com/akshitanchan/fpp-arrivals/internal/sim"
)

type runOptions struct {
	*rootOptions
	Scenario   string
	ConfigPath string
	Seed       int64
	RandomSeed bool
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one scenario",
		Long: `Run one scenario and write its event log, config, metrics and report
into <runs>/<name>_seed<seed>/.

Example:
  fppsim run --scenario calm --seed 7
  fppsim run --config ./bursts.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "built-in scenario: "+strings.Join(scenario.Names, ", "))
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML scenario file")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed (default: $FPPSIM_DEFAULT_SEED)")
	cmd.Flags().BoolVar(&opts.RandomSeed, "random-seed", false, "draw a fresh seed")
	cmd.MarkFlagsMutuallyExclusive("scenario", "config")

	return cmd
}

type runOutput struct {
	Run     *sim.RunResult          `json:"run"`
	Metrics *metrics.ArrivalMetrics `json:"metrics"`
}

func runScenario(opts *runOptions, cmd *cobra.Command) error {
	out := opts.output(cmd)

	cfg, err := loadScenario(opts, cmd)
	if err != nil {
		return err
	}

	out.Printf("Running scenario: %s (seed=%d)\n", cfg.Name, cfg.Seed)
	result, m, err := executeRun(opts.rootOptions, cfg)
	if err != nil {
		return err
	}

	return out.Success(runOutput{Run: result, Metrics: m}, func(w io.Writer) {
		fmt.Fprintf(w, "Run complete.\n")
		fmt.Fprintf(w, "  Events processed: %s\n", humanize.Comma(int64(result.EventCount)))
		fmt.Fprintf(w, "  Arrivals:         %s\n", humanize.Comma(int64(result.Arrivals)))
		fmt.Fprintf(w, "  Rounds:           %s\n", humanize.Comma(int64(result.Rounds)))
		if info, err := os.Stat(result.LogPath); err == nil {
			fmt.Fprintf(w, "  Log size:         %s\n", humanize.IBytes(uint64(info.Size())))
		}
		fmt.Fprintf(w, "  Wall time:        %v\n", result.Duration)
		fmt.Fprintf(w, "  Log hash:         %s\n", result.LogHash[:16]+"...")
		fmt.Fprintf(w, "  Output:           %s\n", result.OutputDir)
		fmt.Fprintln(w, "\nMetrics Summary:")
		report.PrintSummary(w, cfg, m)
		fmt.Fprintf(w, "\nReport written to: %s/report.md\n", result.OutputDir)
	})
}

func loadScenario(opts *runOptions, cmd *cobra.Command) (*scenario.Config, error) {
	if opts.ConfigPath != "" {
		cfg, err := scenario.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
		}
		if cmd.Flags().Changed("seed") || opts.RandomSeed {
			seed, err := opts.seed(cmd, opts.Seed, opts.RandomSeed)
			if err != nil {
				return nil, err
			}
			cfg.Seed = seed
		}
		return cfg, nil
	}

	if opts.Scenario == "" {
		return nil, NewExitError(ExitCommandError,
			"--scenario or --config is required ("+strings.Join(scenario.Names, ", ")+")")
	}
	seed, err := opts.seed(cmd, opts.Seed, opts.RandomSeed)
	if err != nil {
		return nil, err
	}
	cfg := scenario.GetConfig(opts.Scenario, seed)
	if cfg == nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown scenario %q", opts.Scenario))
	}
	return cfg, nil
}

// executeRun runs cfg, computes its metrics from the event log and writes
// the run report.
func executeRun(opts *rootOptions, cfg *scenario.Config) (*sim.RunResult, *metrics.ArrivalMetrics, error) {
	runner, err := sim.NewRunner(cfg, opts.Env.RunsDir, sim.WithDefaultMaxRounds(opts.Env.MaxRounds))
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to initialize run", err)
	}

	result, err := runner.Run()
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "run failed", err)
	}

	m, err := metrics.ComputeFromLog(result.LogPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, "failed to compute metrics", err)
	}
	m.AttachExpected(result.StepTimes, result.StepProbs)

	if err := report.NewReport(cfg, m, result.OutputDir).Generate(); err != nil {
		slog.Warn("could not generate report", "run", result.RunID, "error", err)
	}
	return result, m, nil
}
