package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

type reportOptions struct {
	*rootOptions
	LastRun bool
	RunDir  string
	RunID   string
}

func newReportCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &reportOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the report of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printReport(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.LastRun, "last-run", false, "use the most recent run")
	cmd.Flags().StringVar(&opts.RunDir, "run-dir", "", "path to a run directory")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (e.g. calm_seed42)")
	cmd.MarkFlagsMutuallyExclusive("last-run", "run-dir", "run-id")

	return cmd
}

type reportOutput struct {
	RunDir string `json:"run_dir"`
	Report string `json:"report"`
	Plots  string `json:"plots,omitempty"`
}

func printReport(opts *reportOptions, cmd *cobra.Command) error {
	runDir, err := resolveRunDir(opts.Env.RunsDir, opts.LastRun, opts.RunDir, opts.RunID)
	if err != nil {
		return err
	}
	if runDir == "" {
		return NewExitError(ExitCommandError, "--last-run, --run-dir, or --run-id required")
	}

	data, err := os.ReadFile(filepath.Join(runDir, "report.md"))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read report", err)
	}
	res := reportOutput{RunDir: runDir, Report: string(data)}
	if plots, err := os.ReadFile(filepath.Join(runDir, "plots.txt")); err == nil {
		res.Plots = string(plots)
	}

	return opts.output(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintln(w, res.Report)
		if res.Plots != "" {
			fmt.Fprintln(w, res.Plots)
		}
	})
}

// resolveRunDir turns the run selection flags into a run directory. It
// returns "" when none of them is set.
func resolveRunDir(runsDir string, lastRun bool, runDir, runID string) (string, error) {
	switch {
	case lastRun:
		data, err := os.ReadFile(filepath.Join(runsDir, "last-run"))
		if err != nil {
			return "", WrapExitError(ExitCommandError, "no last run found, run a scenario first", err)
		}
		return strings.TrimSpace(string(data)), nil
	case runDir != "":
		return runDir, nil
	case runID != "":
		return filepath.Join(runsDir, runID), nil
	default:
		return "", nil
	}
}
