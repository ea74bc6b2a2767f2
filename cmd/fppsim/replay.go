package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/akshitanchan/fpp-arrivals/internal/metrics"
	"github.com/akshitanchan/fpp-arrivals/internal/report"
	"github.com/akshitanchan/fpp-arrivals/internal/scenario"
	"github.com/akshitanchan/fpp-arrivals/internal/sim"
)

type replayOptions struct {
	*rootOptions
	RunID   string
	RunDir  string
	LogPath string
	Verify  bool
}

func newReplayCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &replayOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompute metrics from an event log and check its hash",
		Long: `Replay reads an event log back, dispatches it through the event loop,
recomputes the run metrics and compares the log hash with the one recorded
when the run was written. A log whose lines are out of dispatch order fails.

With --verify the run is executed again from its saved config into a
scratch directory, and the fresh log hash must match as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (e.g. calm_seed42)")
	cmd.Flags().StringVar(&opts.RunDir, "run-dir", "", "path to a run directory")
	cmd.Flags().StringVar(&opts.LogPath, "log", "", "path to an event log (events.jsonl)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "re-run the saved config and compare hashes")

	return cmd
}

type replayOutput struct {
	LogPath      string                  `json:"log_path"`
	LogHash      string                  `json:"log_hash"`
	RecordedHash string                  `json:"recorded_hash,omitempty"`
	RerunHash    string                  `json:"rerun_hash,omitempty"`
	Match        bool                    `json:"match"`
	Metrics      *metrics.ArrivalMetrics `json:"metrics"`
}

func runReplay(opts *replayOptions, cmd *cobra.Command) error {
	runDir, err := resolveRunDir(opts.Env.RunsDir, false, opts.RunDir, opts.RunID)
	if err != nil {
		return err
	}
	logPath := opts.LogPath
	if logPath == "" && runDir != "" {
		logPath = filepath.Join(runDir, "events.jsonl")
	}
	if logPath == "" {
		return NewExitError(ExitCommandError, "--run-id, --run-dir, or --log required")
	}
	if runDir == "" {
		runDir = filepath.Dir(logPath)
	}

	m, err := computeMetricsFromEventLog(logPath)
	if errors.Is(err, sim.ErrLogOrder) {
		return WrapExitError(ExitFailure, "event log failed replay", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "could not recompute metrics from event log", err)
	}
	hash, err := sim.HashFile(logPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "could not hash event log", err)
	}
	res := replayOutput{LogPath: logPath, LogHash: hash, Match: true, Metrics: m}

	cfg, err := readConfig(filepath.Join(runDir, "config.json"))
	if err != nil {
		slog.Debug("no saved config, expected counts skipped", "error", err)
	} else if times, probs, err := sim.ExpectedProbabilities(cfg); err != nil {
		slog.Debug("could not recompute expected counts", "error", err)
	} else {
		m.AttachExpected(times, probs)
	}

	if recorded, err := readRecordedHash(filepath.Join(runDir, "run.json")); err == nil {
		res.RecordedHash = recorded
		res.Match = recorded == hash
	}

	if opts.Verify {
		if cfg == nil {
			return NewExitError(ExitCommandError, "--verify needs the run's config.json")
		}
		scratch, err := os.MkdirTemp("", "fppsim-replay-")
		if err != nil {
			return WrapExitError(ExitFailure, "failed to create scratch dir", err)
		}
		defer os.RemoveAll(scratch)

		runner, err := sim.NewRunner(cfg, scratch, sim.WithDefaultMaxRounds(opts.Env.MaxRounds))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to initialize re-run", err)
		}
		rerun, err := runner.Run()
		if err != nil {
			return WrapExitError(ExitFailure, "re-run failed", err)
		}
		res.RerunHash = rerun.LogHash
		res.Match = res.Match && rerun.LogHash == hash
	}

	if err := opts.output(cmd).Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "Replaying event log: %s\n", logPath)
		fmt.Fprintln(w, "\nMetrics Summary (Replay):")
		if cfg == nil {
			cfg = &scenario.Config{Name: m.Scenario, Seed: m.Seed, Method: m.Method, TotalPulses: m.TotalPulses}
		}
		report.PrintSummary(w, cfg, m)
		printHashCheck(w, "recorded", res.RecordedHash, hash)
		printHashCheck(w, "re-run", res.RerunHash, hash)
	}); err != nil {
		return err
	}

	if !res.Match {
		return NewExitError(ExitFailure, "event log hash mismatch")
	}
	return nil
}

func printHashCheck(w io.Writer, label, want, got string) {
	if want == "" {
		return
	}
	if want == got {
		fmt.Fprintf(w, "\nEvent log hash matches %s: %s...\n", label, got[:16])
		return
	}
	fmt.Fprintf(w, "\nEvent log hash MISMATCH against %s!\n  %s: %s...\n  log: %s...\n", label, label, want[:16], got[:16])
}

func readConfig(path string) (*scenario.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &scenario.Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readRecordedHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var meta struct {
		LogHash string `json:"log_hash"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	if meta.LogHash == "" {
		return "", fmt.Errorf("run.json has no log hash")
	}
	return meta.LogHash, nil
}

func computeMetricsFromEventLog(logPath string) (*metrics.ArrivalMetrics, error) {
	events, err := sim.Replay(logPath)
	if err != nil {
		return nil, err
	}
	return metrics.ComputeFromEvents(events), nil
}
