package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/akshitanchan/fpp-arrivals/internal/config"
	"github.com/akshitanchan/fpp-arrivals/internal/random"
)

// rootOptions holds global flags and the environment shared by all commands.
type rootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Env config.Env
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "fppsim",
		Short: "Arrival times for filtered point process signals",
		Long: `fppsim draws pulse arrival times from a variable rate process,
logs every run as a deterministic event log and reports on the result.

Environment:
  FPPSIM_RUNS_DIR      output directory for runs (default: runs)
  FPPSIM_MAX_ROUNDS    sampling round limit when a scenario sets none (default: 10000)
  FPPSIM_DEFAULT_SEED  seed used when --seed is not given (default: 42)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, validFormats))
			}
			env, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid environment", err)
			}
			opts.Env = env

			logLevel := slog.LevelInfo
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newDemoCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newReplayCommand(opts))
	cmd.AddCommand(newSampleCommand(opts))

	return cmd
}

func (o *rootOptions) output(cmd *cobra.Command) *outputFormatter {
	return &outputFormatter{format: o.Format, w: cmd.OutOrStdout()}
}

// seed picks the seed for a command: an explicit --seed, a fresh random
// seed with --random-seed, or the environment default.
func (o *rootOptions) seed(cmd *cobra.Command, flagValue int64, randomSeed bool) (int64, error) {
	if cmd.Flags().Changed("seed") {
		if randomSeed {
			return 0, NewExitError(ExitCommandError, "--seed and --random-seed are mutually exclusive")
		}
		return flagValue, nil
	}
	if randomSeed {
		s, err := random.NewSeed()
		if err != nil {
			return 0, WrapExitError(ExitFailure, "failed to generate seed", err)
		}
		return s, nil
	}
	return o.Env.DefaultSeed, nil
}
